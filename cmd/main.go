package main

import "github.com/danilofalcao/llama-gateway/internal/cmd"

func main() {
	cmd.Run()
}
