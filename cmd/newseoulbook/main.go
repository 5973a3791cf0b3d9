package main

import "github.com/bhc880510-bsk/newseoul-booking/cmd"

func main() {
	cmd.Execute()
}
