package main

import "github.com/chinkauchenna2021/bankauth/cmd/bankauth/cmd"

func main() {
	cmd.Execute()
}
