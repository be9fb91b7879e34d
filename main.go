package main

import "github.com/Digital-Shane/youtube-metadata/internal/cmd"

func main() {
	cmd.Execute()
}
