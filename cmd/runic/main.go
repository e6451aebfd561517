// runic is a command line tool for working with runic-encoded data.
//
// Subcommands:
//
//	inspect    dump a descriptive stream as an indented tree
//	transcode  convert between descriptive, json, cbor, msgpack, yaml
//	frame      wrap a payload into a checksummed, compressed frame
//	unframe    unwrap a frame back into its payload
//
// Only the descriptive format is self-describing, so transcoding
// always pivots through it.
package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/pflag"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/runic"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("missing subcommand")
	}

	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	switch os.Args[1] {
	case "inspect":
		return runInspect(logger, os.Args[2:])
	case "transcode":
		return runTranscode(logger, os.Args[2:])
	case "frame":
		return runFrame(logger, os.Args[2:])
	case "unframe":
		return runUnframe(logger, os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand %q", os.Args[1])
	}
}

func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if os.Getenv("RUNIC_DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: runic <subcommand> [flags]

subcommands:
  inspect    dump a descriptive stream as a tree
  transcode  convert between descriptive, json, cbor, msgpack, yaml
  frame      wrap a payload into a frame
  unframe    unwrap a frame

run "runic <subcommand> --help" for flags`)
}

// readInput reads the input file, or stdin when path is "-" or empty.
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ============================================================
// inspect
// ============================================================

func runInspect(logger *zap.Logger, args []string) error {
	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	input := flags.StringP("input", "i", "-", "input file (- for stdin)")
	framed := flags.Bool("framed", false, "unwrap a frame before decoding")
	if err := flags.Parse(args); err != nil {
		return err
	}

	data, err := readInput(*input)
	if err != nil {
		return err
	}
	if *framed {
		data, err = runic.DecodeFrame(data)
		if err != nil {
			return err
		}
	}

	cx := runic.NewContext(runic.StrategyRich, runic.NewSystem())
	value, err := runic.DefaultDescriptive.DecodeValueWith(cx, data)
	if err != nil {
		for _, report := range cx.Reports() {
			logger.Error("decode failed",
				zap.String("path", report.Path),
				zap.Int("start", report.Start),
				zap.Int("end", report.End),
				zap.Error(report.Err))
		}
		return err
	}

	var b strings.Builder
	renderValue(&b, value, 0)
	fmt.Print(b.String())
	return nil
}

// renderValue writes an indented tree rendering of a dynamic value.
func renderValue(b *strings.Builder, v *runic.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v.Kind() {
	case runic.KindList:
		items, _ := v.AsList()
		fmt.Fprintf(b, "%slist(%d)\n", indent, len(items))
		for _, item := range items {
			renderValue(b, item, depth+1)
		}
	case runic.KindMap:
		entries, _ := v.AsMap()
		fmt.Fprintf(b, "%smap(%d)\n", indent, len(entries))
		for _, e := range entries {
			fmt.Fprintf(b, "%s  %s:\n", indent, renderScalar(e.Key))
			renderValue(b, e.Value, depth+2)
		}
	case runic.KindVariant:
		variant, _ := v.AsVariant()
		fmt.Fprintf(b, "%svariant %s\n", indent, renderScalar(variant.Tag))
		renderValue(b, variant.Value, depth+1)
	default:
		fmt.Fprintf(b, "%s%s\n", indent, renderScalar(v))
	}
}

func renderScalar(v *runic.Value) string {
	switch v.Kind() {
	case runic.KindUnit:
		return "unit"
	case runic.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%v", b)
	case runic.KindUint:
		u, _ := v.AsUint()
		return fmt.Sprintf("%d", u)
	case runic.KindInt:
		i, _ := v.AsInt()
		return fmt.Sprintf("%d", i)
	case runic.KindFloat:
		f, _ := v.AsFloat()
		return fmt.Sprintf("%g", f)
	case runic.KindString:
		s, _ := v.AsString()
		return fmt.Sprintf("%q", s)
	case runic.KindBytes:
		raw, _ := v.AsBytes()
		return fmt.Sprintf("bytes(%d) %s", len(raw), base64.StdEncoding.EncodeToString(raw))
	case runic.KindPack:
		raw, _ := v.AsPack()
		return fmt.Sprintf("pack(%d) %s", len(raw), base64.StdEncoding.EncodeToString(raw))
	default:
		return v.Kind().String()
	}
}

// ============================================================
// transcode
// ============================================================

func runTranscode(logger *zap.Logger, args []string) error {
	flags := pflag.NewFlagSet("transcode", pflag.ContinueOnError)
	input := flags.StringP("input", "i", "-", "input file (- for stdin)")
	output := flags.StringP("output", "o", "-", "output file (- for stdout)")
	from := flags.String("from", "runic", "input format: runic, json, cbor, msgpack, yaml")
	to := flags.String("to", "json", "output format: runic, json, cbor, msgpack, yaml")
	extended := flags.Bool("extended", false, "use $runic JSON markers for lossless round-trip")
	if err := flags.Parse(args); err != nil {
		return err
	}

	data, err := readInput(*input)
	if err != nil {
		return err
	}

	value, err := importValue(data, *from, *extended)
	if err != nil {
		return err
	}
	logger.Debug("transcoding",
		zap.String("from", *from),
		zap.String("to", *to),
		zap.Int("input_bytes", len(data)))

	out, err := exportValue(value, *to, *extended)
	if err != nil {
		return err
	}
	return writeOutput(*output, out)
}

func importValue(data []byte, from string, extended bool) (*runic.Value, error) {
	switch from {
	case "runic":
		return runic.DefaultDescriptive.DecodeValue(data)
	case "json":
		opts := runic.BridgeOpts{Extended: extended}
		return runic.ValueFromJSONWithOpts(data, opts)
	case "cbor":
		var v any
		if err := cbor.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("cbor decode: %w", err)
		}
		return runic.FromInterface(v)
	case "msgpack":
		var v any
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("msgpack decode: %w", err)
		}
		return runic.FromInterface(v)
	case "yaml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("yaml decode: %w", err)
		}
		return runic.FromInterface(v)
	default:
		return nil, fmt.Errorf("unknown input format %q", from)
	}
}

func exportValue(value *runic.Value, to string, extended bool) ([]byte, error) {
	switch to {
	case "runic":
		return runic.DefaultDescriptive.EncodeValue(value)
	case "json":
		opts := runic.BridgeOpts{Extended: extended}
		return runic.ValueToJSONWithOpts(value, opts)
	case "cbor":
		return cbor.Marshal(stabilize(value.Interface()))
	case "msgpack":
		return msgpack.Marshal(stabilize(value.Interface()))
	case "yaml":
		return yaml.Marshal(stabilize(value.Interface()))
	default:
		return nil, fmt.Errorf("unknown output format %q", to)
	}
}

// stabilize sorts map keys recursively so repeated transcodes of the
// same input produce identical bytes in order-sensitive formats.
func stabilize(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		if list, ok := v.([]any); ok {
			for i, item := range list {
				list[i] = stabilize(item)
			}
		}
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(m))
	for _, k := range keys {
		out[k] = stabilize(m[k])
	}
	return out
}

// ============================================================
// frame / unframe
// ============================================================

func runFrame(logger *zap.Logger, args []string) error {
	flags := pflag.NewFlagSet("frame", pflag.ContinueOnError)
	input := flags.StringP("input", "i", "-", "input file (- for stdin)")
	output := flags.StringP("output", "o", "-", "output file (- for stdout)")
	compression := flags.StringP("compression", "c", "zstd", "compression: none, lz4, zstd")
	if err := flags.Parse(args); err != nil {
		return err
	}

	tag, err := runic.ParseCompressionTag(*compression)
	if err != nil {
		return err
	}
	data, err := readInput(*input)
	if err != nil {
		return err
	}
	frame, err := runic.EncodeFrame(data, tag)
	if err != nil {
		return err
	}
	logger.Debug("framed payload",
		zap.Int("raw_bytes", len(data)),
		zap.Int("frame_bytes", len(frame)),
		zap.String("compression", tag.String()))
	return writeOutput(*output, frame)
}

func runUnframe(logger *zap.Logger, args []string) error {
	flags := pflag.NewFlagSet("unframe", pflag.ContinueOnError)
	input := flags.StringP("input", "i", "-", "input file (- for stdin)")
	output := flags.StringP("output", "o", "-", "output file (- for stdout)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	data, err := readInput(*input)
	if err != nil {
		return err
	}
	payload, err := runic.DecodeFrame(data)
	if err != nil {
		return err
	}
	logger.Debug("unframed payload",
		zap.Int("frame_bytes", len(data)),
		zap.Int("raw_bytes", len(payload)))
	return writeOutput(*output, payload)
}
