package main

import "github.com/ValentinKolb/vold/cmd"

func main() {
	cmd.Execute()
}
