package main

import (
	"dealerstudio/cmd/handlers"
)

func main() {
	handlers.Execute()
}
