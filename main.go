package main

import "github.com/apexreplay/apexreplay-service-go/cmd"

func main() {
	cmd.Execute()
}
