package main

import "github.com/codebuildervaibhav/audio-quiz/internal/cli"

func main() {
	cli.Main()
}
