package cli

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

// infoFlag collects repeated -info key=value options.
type infoFlag map[string]string

func (f infoFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+f[k])
	}
	return strings.Join(pairs, ",")
}

func (f infoFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	f[strings.TrimSpace(key)] = val
	return nil
}

type options struct {
	verbose     bool
	config      string
	font        string
	info        infoFlag
	hash        bool
	interactive bool
	signCert    string
	signKey     string
	signChain   string
	tsa         string
}

func newFlagSet(name string, stderr io.Writer, o *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	o.info = make(infoFlag)
	fs.BoolVar(&o.verbose, "v", false, "Log diagnostics to stderr")
	fs.StringVar(&o.config, "config", "", "Configuration file (TOML, or YAML for .yaml and .yml)")
	fs.StringVar(&o.font, "font", "", "TrueType font embedded for all filled values")
	fs.Var(o.info, "info", "Document information entry as key=value (repeatable)")
	fs.BoolVar(&o.hash, "hash", false, "Print the SHA-256 digest of the output")
	fs.BoolVar(&o.interactive, "interactive", false, "Ask for confirmation before writing the output")
	fs.StringVar(&o.signCert, "sign-cert", "", "Certificate for a detached signature of the output")
	fs.StringVar(&o.signKey, "sign-key", "", "Private key for a detached signature of the output")
	fs.StringVar(&o.signChain, "sign-chain", "", "Intermediate and root certificates of the signing certificate")
	fs.StringVar(&o.tsa, "tsa", "", "URL of a time-stamp authority for the detached signature")

	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, "Usage: %s [options] <template.pdf> <output.pdf> <json-field-map> [xfa]\n\n", name)
		fmt.Fprintln(w, "Fill a PDF form with the values of a JSON object and flatten it")
		fmt.Fprintln(w, "\nOptions:")
		fs.PrintDefaults()
		fmt.Fprintln(w, "\nExamples:")
		fmt.Fprintf(w, "  %s template.pdf certificate.pdf '{\"name\":\"Jane Doe\"}'\n", name)
		fmt.Fprintf(w, "  %s template.pdf certificate.pdf '{\"name\":\"Jane Doe\"}' xfa\n", name)
		fmt.Fprintf(w, "  %s -hash -info Subject=Diploma template.pdf certificate.pdf '{\"name\":\"Jane Doe\"}'\n", name)
	}
	return fs
}
