package main

import "github.com/MeKo-Tech/docflow/cmd/docflow/cmd"

func main() {
	cmd.Execute()
}
