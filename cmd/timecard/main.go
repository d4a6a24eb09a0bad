// Command timecard is a personal task list with time tracking.
package main

import "github.com/mesh-intelligence/timecard/internal/cli"

func main() {
	cli.Execute()
}
