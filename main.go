package main

import "github.com/Digital-Shane/title-scout/internal/cmd"

func main() {
	cmd.Execute()
}
