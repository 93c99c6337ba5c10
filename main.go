// Public domain.

package main

import "github.com/skymask/brickmask/internal/bmprog"

func main() {
	bmprog.Main()
}
