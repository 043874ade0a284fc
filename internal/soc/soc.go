// Package soc detects which i.MX SoC model the tool is running on and maps
// it to the matching register definition file.
package soc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Model identifies a supported SoC variant.
type Model string

// Supported models, matching the shipped definition files.
const (
	IMX51   Model = "imx51"
	IMX53   Model = "imx53"
	IMX6Q   Model = "imx6q"
	IMX6DLS Model = "imx6dls"
	IMX7D   Model = "imx7d"
	IMX8MQ  Model = "imx8mq"
	IMX8MM  Model = "imx8mm"
)

// Parse validates a user-supplied model name, as given to --cpu.
func Parse(name string) (Model, error) {
	switch m := Model(strings.ToLower(name)); m {
	case IMX51, IMX53, IMX6Q, IMX6DLS, IMX7D, IMX8MQ, IMX8MM:
		return m, nil
	}
	return "", fmt.Errorf("soc: unknown CPU name %q", name)
}

// DataPath returns the definition file shipped for the model.
func DataPath(m Model) string {
	return "/etc/devregs_" + string(m) + ".dat"
}

// Detect identifies the running SoC from the kernel's identification files,
// trying the soc bus first and falling back to cpuinfo.
func Detect() (Model, error) {
	for _, path := range []string{"/sys/devices/soc0/soc_id", "/proc/cpuinfo"} {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		m, ok := detect(f)
		f.Close()
		if ok {
			return m, nil
		}
	}
	return "", fmt.Errorf("soc: could not detect CPU type, use --cpu to set it")
}

// SoC revision codes as exposed by i.MX kernels. The high bits of the
// cpuinfo Revision value carry the family on older kernels.
const (
	revIMX51Old = 0x5
	revIMX7D    = 0x7
	revIMX6Solo = 0x10 // ambiguous, needs the processor-count heuristic
	revIMX51    = 0x51
	revIMX8MQ   = 0x81
	revIMX8MM   = 0x82

	famMask    = 0xff000
	famIMX53   = 0x53000
	famIMX6DLS = 0x61000
	famIMX6Q   = 0x63000
)

// detect scans identification text for an SoC marker string or a hex
// Revision value. When only the ambiguous solo/quad revision shows up, the
// number of processor entries decides the family.
func detect(r io.Reader) (Model, bool) {
	markers := []struct {
		substr string
		model  Model
	}{
		{"i.MX7", IMX7D},
		{"i.MX51", IMX51},
		{"i.MX8MQ", IMX8MQ},
		{"i.MX8MM", IMX8MM},
		{"i.MX8MN", IMX8MM},
	}

	rev := uint64(0)
	processors := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := scanner.Text()
		for _, m := range markers {
			if strings.Contains(text, m.substr) {
				return m.model, true
			}
		}
		if v, ok := revisionValue(text); ok && rev == 0 {
			rev = v
		}
		if strings.Contains(text, "processor") {
			processors++
		}
	}

	if rev == 0 || rev == revIMX6Solo {
		// Solo/quad parts report the same revision; core count tells
		// them apart.
		switch processors {
		case 1, 2:
			return IMX6DLS, true
		case 4:
			return IMX6Q, true
		}
		return "", false
	}
	return modelForRevision(rev)
}

func modelForRevision(rev uint64) (Model, bool) {
	switch rev & famMask {
	case famIMX6Q:
		return IMX6Q, true
	case famIMX6DLS:
		return IMX6DLS, true
	case famIMX53:
		return IMX53, true
	}
	switch rev {
	case revIMX51, revIMX51Old:
		return IMX51, true
	case revIMX7D:
		return IMX7D, true
	case revIMX8MQ:
		return IMX8MQ, true
	case revIMX8MM:
		return IMX8MM, true
	}
	return "", false
}

// revisionValue extracts the hex value of a cpuinfo line such as
// "Revision	: 63012".
func revisionValue(line string) (uint64, bool) {
	if !strings.Contains(line, "Revision") && !strings.Contains(line, "revision") {
		return 0, false
	}
	_, after, found := strings.Cut(line, ":")
	if !found {
		return 0, false
	}
	after = strings.TrimSpace(after)
	v := uint64(0)
	n := 0
	for _, c := range after {
		d, ok := hexDigit(c)
		if !ok {
			break
		}
		v = v<<4 | uint64(d)
		n++
	}
	return v, n > 0
}

func hexDigit(c rune) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}
