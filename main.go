package main

import "github.com/routeql/routeql/cmd"

func main() {
	cmd.Execute()
}
