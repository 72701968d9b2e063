// Command stacgate serves a STAC catalog with the transaction extension.
package main

func main() {
	Execute()
}
