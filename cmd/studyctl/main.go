package main

import "github.com/zfogg/searchstudy/internal/cmd"

func main() {
	cmd.Execute()
}
