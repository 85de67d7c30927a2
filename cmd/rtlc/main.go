package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/jatincse/circt"
	"github.com/jatincse/circt/internal/canon"
	"github.com/jatincse/circt/internal/rtl"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "canon":
		if err := cmdCanon(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "verify":
		if err := cmdVerify(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(circt.Version())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("rtlc - RTL netlist verifier and canonicalizer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rtlc verify <file.rtl>")
	fmt.Println("  rtlc canon <file.rtl> [-o <file.rtl>]")
	fmt.Println("  rtlc version")
}

func cmdVerify(args []string) error {
	if len(args) != 1 {
		return errors.New("verify requires a single .rtl input")
	}
	d, err := parseFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d modules\n", len(d.Modules))
	return nil
}

func cmdCanon(args []string) error {
	outPath, rest, err := parseCanonArgs(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("canon requires a single .rtl input")
	}
	d, err := parseFile(rest[0])
	if err != nil {
		return err
	}
	if err := canon.CanonicalizeDesign(context.Background(), d); err != nil {
		return err
	}
	text := rtl.PrintDesign(d)
	if outPath == "" {
		fmt.Print(text)
		return nil
	}
	return ioutil.WriteFile(outPath, []byte(text), 0644)
}

func parseFile(path string) (*rtl.Design, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := rtl.ParseDesign(rtl.NewTypeInterner(), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func parseCanonArgs(args []string) (string, []string, error) {
	fs := flag.NewFlagSet("canon", flag.ContinueOnError)
	outPath := fs.String("o", "", "output file (default stdout)")
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-o" || arg == "--o" {
			if i+1 >= len(args) {
				return "", nil, errors.New("missing value for -o")
			}
			if err := fs.Set("o", args[i+1]); err != nil {
				return "", nil, err
			}
			i++
			continue
		}
		if strings.HasPrefix(arg, "-o=") {
			if err := fs.Set("o", strings.TrimPrefix(arg, "-o=")); err != nil {
				return "", nil, err
			}
			continue
		}
		if strings.HasPrefix(arg, "-") {
			// Let FlagSet handle known flags to preserve error messages.
			if err := fs.Parse([]string{arg}); err != nil {
				return "", nil, err
			}
			continue
		}
		rest = append(rest, arg)
	}
	return *outPath, rest, nil
}
