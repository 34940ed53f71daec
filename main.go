package main

import "f1replaybot/cmd"

func main() {
	cmd.Execute()
}
