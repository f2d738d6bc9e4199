package main

import (
	cfg "imaginarium/src/configuration"
	server "imaginarium/src/server"
)

func main() {
	config := cfg.ReadProperties()
	server.RunServer(config)
}
