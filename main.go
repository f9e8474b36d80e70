package main

import "github.com/theirongolddev/ilbudget/cmd"

func main() {
	cmd.Execute()
}
