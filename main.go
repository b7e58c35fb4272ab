package main

import "github.com/vibast-solutions/ms-go-userauth/cmd"

func main() {
	cmd.Execute()
}
