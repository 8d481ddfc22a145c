// Command wavesync runs the music and social server.
package main

func main() {
	Execute()
}
