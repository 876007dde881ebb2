package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// In is where prompts read answers from
var In io.Reader = os.Stdin

// Confirm asks a yes/no question
func Confirm(label string) (bool, error) {
	fmt.Fprint(Out, label+" (y/n) ")
	input, err := bufio.NewReader(In).ReadString('\n')
	if err != nil && input == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(input))
	return answer == "y" || answer == "yes", nil
}

// Prompt asks for a line of text
func Prompt(label string) (string, error) {
	fmt.Fprint(Out, label)
	input, err := bufio.NewReader(In).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
