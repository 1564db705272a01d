package main

import "github.com/HitchedSyringe/Sleepy/cmd"

func main() {
	cmd.Execute()
}
