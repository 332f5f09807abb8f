package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var requireCaptureID = cobra.ExactArgs(1)

var errConfirmRequired = errors.New("refusing to delete without --yes")

func parseCaptureID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid capture id %q", arg)
	}
	return id, nil
}
