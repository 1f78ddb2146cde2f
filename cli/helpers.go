package cli

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// ReadPasswordMasked prompts on the terminal and echoes an asterisk per
// typed rune. Used by the non-TUI import mode; the TUI has its own masked
// input.
func ReadPasswordMasked(prompt string) []byte {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		// Not a terminal (e.g. piped input): fall back to a plain read.
		pw, _ := term.ReadPassword(fd)
		return pw
	}
	defer term.Restore(fd, state)

	var input []rune
	for {
		var buf [1]byte
		if _, err := os.Stdin.Read(buf[:]); err != nil {
			fmt.Println()
			return []byte(string(input))
		}

		switch c := buf[0]; c {
		case 13, 10: // Enter
			fmt.Println()
			return []byte(string(input))
		case 3: // Ctrl+C
			fmt.Println()
			return nil
		case 127, 8: // Backspace
			if len(input) > 0 {
				input = input[:len(input)-1]
				fmt.Print("\b \b")
			}
		default:
			r, _ := utf8.DecodeRune(buf[:])
			input = append(input, r)
			fmt.Print("*")
		}
	}
}
