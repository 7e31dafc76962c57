package main

import "github.com/Lorenzo2345612/ams2-telemetry-backend/cmd"

func main() {
	cmd.Execute()
}
