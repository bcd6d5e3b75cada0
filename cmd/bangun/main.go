package main

import "github.com/bangunhq/estimator/internal/interfaces/cli"

func main() {
	cli.Execute()
}
