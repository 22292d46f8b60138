package main

import "gigboard_backend/internal/app"

func main() {
	app.Run()
}
