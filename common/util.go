package common

import (
	"log"
	"os"
)

func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Contains tells whether arr contains x.
func Contains(arr []int, x int) bool {
	for _, n := range arr {
		if x == n {
			return true
		}
	}
	return false
}

// Remove deletes the file at path and logs when it cannot. Tests use it to clean up store files.
func Remove(path string) {
	if err := os.Remove(path); err != nil {
		log.Printf("could not remove file: %v, err: %v \n", path, err)
	}
}
