package main

import "github.com/ValentinKolb/petlaDB/cmd"

func main() {
	cmd.Execute()
}
