package symbols

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadAddrsFile populates the table from a symbol-addrs text file.
//
// One symbol per line:
//
//	boot_main = 0x80005A00; // type:func rom:0x1A00
//	osTvType = 0x80000300; // type:data defined
//	old_handler = 0x80021000; // dead
//
// Attributes after the comment marker are space-separated key:value
// pairs; bare "referenced", "defined", and "dead" flags are accepted.
// Blank lines and pure comment lines are skipped.
func (t *Table) LoadAddrsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open symbol addrs: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		sym, err := parseAddrsLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if sym != nil {
			t.Add(sym)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read symbol addrs: %w", err)
	}
	return nil
}

func parseAddrsLine(line string) (*Symbol, error) {
	decl, attrs, _ := strings.Cut(line, "//")
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return nil, nil
	}

	name, addrPart, ok := strings.Cut(decl, "=")
	if !ok {
		return nil, fmt.Errorf("expected 'name = 0xADDR;', got %q", decl)
	}

	addrText := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(addrPart), ";"))
	vram, err := parseAddr(addrText)
	if err != nil {
		return nil, err
	}

	sym := &Symbol{
		Name: strings.TrimSpace(name),
		VRAM: vram,
	}
	if sym.Name == "" {
		return nil, fmt.Errorf("empty symbol name")
	}

	for _, attr := range strings.Fields(attrs) {
		key, value, hasValue := strings.Cut(attr, ":")
		switch key {
		case "type":
			sym.Kind = Kind(value)
		case "rom":
			rom, err := parseAddr(value)
			if err != nil {
				return nil, fmt.Errorf("attribute rom: %w", err)
			}
			sym.ROM = rom
			sym.HasROM = true
		case "referenced":
			sym.Referenced = flagValue(value, hasValue)
		case "defined":
			sym.Defined = flagValue(value, hasValue)
		case "dead":
			sym.Dead = flagValue(value, hasValue)
		default:
			// Unknown attributes are ignored for forward compatibility.
		}
	}

	return sym, nil
}

func flagValue(value string, hasValue bool) bool {
	if !hasValue {
		return true
	}
	return value == "true"
}

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return uint32(v), nil
}
