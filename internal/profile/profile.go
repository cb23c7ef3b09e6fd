package profile

import (
	"fmt"
	"os"
	"strings"
)

type ProfileType string

var Current = DEV // dev profile as default

const (
	DEV  ProfileType = "DEV"
	TEST ProfileType = "TEST"
	PROD ProfileType = "PROD"
)

func InitProfile() {
	Current = Parse(os.Getenv("PROFILE"))
	fmt.Fprintf(os.Stderr, "Current profile: %s\n", Current)
}

// Parse maps a profile name to its type, unknown names select DEV.
func Parse(name string) ProfileType {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TEST":
		return TEST
	case "PROD":
		return PROD
	default:
		return DEV
	}
}
