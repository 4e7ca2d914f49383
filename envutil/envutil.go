package envutil

import (
	"log"
	"os"
	"strconv"
)

// GetenvDefault gets the value of an environment variable, or returns the
// given default if the variable is not set.
func GetenvDefault(name, defaultValue string) string {
	if val, found := os.LookupEnv(name); found {
		return val
	}
	return defaultValue
}

// GetenvDefaultInt gets an environment variable as an int, or returns the default.
func GetenvDefaultInt(name string, defaultVal int) int {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("environment variable %s should be an integer: %v", name, err)
	}
	return intVal
}
