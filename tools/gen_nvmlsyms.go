// Package main generates the nvml package's function slot declarations from
// the NVML C header.
//
// NOTE: This generator uses simple regex-based parsing which works for the
// current NVML header but may be fragile with future header changes. Newer
// headers rename entry points behind #define aliases (nvmlInit ->
// nvmlInit_v2); the legacy exports stay in the library, so a wrapped name
// resolved through an alias is reported as a warning, not an error.
package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

type wrappedSymbol struct {
	Name    string
	MinCUDA string // non-empty marks the version-gated group
}

// wrapped is the fixed set of entry points the nvml package binds, in slot
// order.
var wrapped = []wrappedSymbol{
	{Name: "nvmlInit"},
	{Name: "nvmlShutdown"},
	{Name: "nvmlDeviceGetHandleByPciBusId"},
	{Name: "nvmlDeviceGetHandleByIndex"},
	{Name: "nvmlDeviceGetIndex"},
	{Name: "nvmlDeviceSetCpuAffinity"},
	{Name: "nvmlDeviceClearCpuAffinity"},
	{Name: "nvmlSystemGetDriverVersion"},
	{Name: "nvmlDeviceGetCpuAffinity"},
	{Name: "nvmlErrorString"},
	{Name: "nvmlDeviceGetCpuAffinityWithinScope", MinCUDA: "11.0"},
	{Name: "nvmlDeviceGetBrand", MinCUDA: "11.0"},
	{Name: "nvmlDeviceGetCount_v2", MinCUDA: "11.0"},
	{Name: "nvmlDeviceGetHandleByIndex_v2", MinCUDA: "11.0"},
	{Name: "nvmlDeviceGetCudaComputeCapability", MinCUDA: "11.0"},
}

// typeMap translates the C parameter types used by the wrapped prototypes
// into the Go types the purego slots expect.
var typeMap = map[string]string{
	"const char *":        "string",
	"char *":              "[]byte",
	"unsigned int":        "uint32",
	"unsigned int *":      "*uint32",
	"unsigned long *":     "[]uint64",
	"int":                 "int32",
	"const int":           "int32",
	"int *":               "*int32",
	"nvmlDevice_t":        "Device",
	"nvmlDevice_t *":      "*Device",
	"nvmlBrandType_t *":   "*BrandType",
	"nvmlAffinityScope_t": "AffinityScope",
	"nvmlReturn_t":        "Return",
}

type prototype struct {
	Name          string
	ReturnsString bool // const char* return instead of nvmlReturn_t
	Params        string
	LineNum       int
}

var (
	statusProtoPattern = regexp.MustCompile(`^\s*nvmlReturn_t\s+DECLDIR\s+(nvml\w+)\s*\((.*)\);\s*$`)
	stringProtoPattern = regexp.MustCompile(`^\s*const\s+DECLDIR\s+char\s*\*\s*(nvml\w+)\s*\((.*)\);\s*$`)
	protoStartPattern  = regexp.MustCompile(`^\s*(nvmlReturn_t|const)\s+DECLDIR\s+`)
	paramPattern       = regexp.MustCompile(`^(.*?)\s*(\**)\s*(\w+)$`)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <path-to-nvml.h>\n", os.Args[0])
		os.Exit(1)
	}

	headerPath := os.Args[1]
	file, err := os.Open(headerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open header file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	prototypes := make(map[string]prototype)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	lineNum := 0
	pending := ""
	pendingLine := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if pending == "" {
			if !protoStartPattern.MatchString(line) {
				continue
			}
			pending = line
			pendingLine = lineNum
		} else {
			// Continuation of a prototype that spans lines.
			pending += " " + strings.TrimSpace(line)
		}
		if !strings.Contains(pending, ";") {
			continue
		}

		proto, ok := parsePrototype(pending, pendingLine)
		pending = ""
		if !ok {
			continue
		}
		if _, dup := prototypes[proto.Name]; dup {
			fmt.Fprintf(os.Stderr, "Error: Duplicate prototype for %s at line %d\n", proto.Name, proto.LineNum)
			os.Exit(1)
		}
		prototypes[proto.Name] = proto
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	if len(prototypes) < 100 {
		fmt.Fprintf(os.Stderr, "Warning: Parsed only %d prototypes; a full nvml.h declares several hundred. Header may have changed.\n", len(prototypes))
	}

	// Resolve every wrapped symbol, following #define aliases when the plain
	// name is gone from the header.
	resolved := make([]prototype, 0, len(wrapped))
	for _, symbol := range wrapped {
		proto, ok := prototypes[symbol.Name]
		if !ok {
			for _, suffix := range []string{"_v2", "_v3"} {
				if alias, aliased := prototypes[symbol.Name+suffix]; aliased {
					fmt.Fprintf(os.Stderr, "Warning: %s is declared as %s in this header; the legacy export keeps this shape, review before pasting.\n",
						symbol.Name, alias.Name)
					proto, ok = alias, true
					break
				}
			}
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: Wrapped symbol '%s' not found. Parser may be broken or the header incomplete.\n", symbol.Name)
			os.Exit(1)
		}
		proto.Name = symbol.Name
		resolved = append(resolved, proto)
	}

	// nvmlErrorString is the one wrapped entry point that does not return a
	// status code; anything else coming through the string pattern means the
	// parser is broken.
	for _, proto := range resolved {
		if proto.ReturnsString != (proto.Name == "nvmlErrorString") {
			fmt.Fprintf(os.Stderr, "Error: Unexpected return shape for %s. Parser may be broken.\n", proto.Name)
			os.Exit(1)
		}
	}

	generateSlots(resolved, headerPath)
}

func parsePrototype(line string, lineNum int) (prototype, bool) {
	if matches := statusProtoPattern.FindStringSubmatch(line); len(matches) > 2 {
		return prototype{Name: matches[1], Params: matches[2], LineNum: lineNum}, true
	}
	if matches := stringProtoPattern.FindStringSubmatch(line); len(matches) > 2 {
		return prototype{Name: matches[1], ReturnsString: true, Params: matches[2], LineNum: lineNum}, true
	}
	return prototype{}, false
}

// goSignature renders one prototype as a Go function type for a purego slot.
func goSignature(proto prototype) (string, error) {
	params := strings.TrimSpace(proto.Params)
	var goParams []string
	if params != "" && params != "void" {
		for _, param := range strings.Split(params, ",") {
			matches := paramPattern.FindStringSubmatch(strings.TrimSpace(param))
			if len(matches) < 4 {
				return "", fmt.Errorf("unparseable parameter %q", param)
			}
			base := strings.Join(strings.Fields(matches[1]), " ")
			key := base
			if matches[2] != "" {
				key += " *"
			}
			goType, ok := typeMap[key]
			if !ok {
				return "", fmt.Errorf("no Go mapping for C type %q (parameter %q)", key, param)
			}
			goParams = append(goParams, matches[3]+" "+goType)
		}
	}

	returnType := "Return"
	if proto.ReturnsString {
		returnType = "string"
	}
	return fmt.Sprintf("func(%s) %s", strings.Join(goParams, ", "), returnType), nil
}

func generateSlots(resolved []prototype, headerPath string) {
	fmt.Println("package nvml")
	fmt.Println()
	fmt.Printf("// Auto-generated from: %s\n", headerPath)
	fmt.Printf("// Generated on: %s\n", time.Now().Format(time.RFC3339))
	fmt.Println("// Generator: tools/gen_nvmlsyms.go")
	fmt.Println("//")
	fmt.Println("// Function slots for the library struct, in resolution order")
	fmt.Println("// DO NOT EDIT MANUALLY - regenerate using tools/gen_nvmlsyms.go")

	gatedBannerPrinted := false
	for i, proto := range resolved {
		if wrapped[i].MinCUDA != "" && !gatedBannerPrinted {
			fmt.Println()
			fmt.Printf("\t// Added to nvml.h with CUDA %s.\n", wrapped[i].MinCUDA)
			gatedBannerPrinted = true
		}
		signature, err := goSignature(proto)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s (header line %d): %v\n", proto.Name, proto.LineNum, err)
			os.Exit(1)
		}
		fmt.Printf("\t%-36s %s // Header line %d\n", proto.Name, signature, proto.LineNum)
	}
}
