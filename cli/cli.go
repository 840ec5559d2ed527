// Package cli implements the pdffill command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/digitorus/pdffill"
	"github.com/digitorus/pdffill/attest"
	"github.com/digitorus/pdffill/config"
	"github.com/digitorus/pdffill/fonts"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

var osExit = os.Exit

// Main runs the command with the process arguments and exits.
func Main() {
	osExit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the command and returns its exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	name := filepath.Base(os.Args[0])
	var o options
	fs := newFlagSet(name, stderr, &o)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	// Positional arguments are checked before any file is touched.
	req, err := pdffill.ParseArgs(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		var ue *pdffill.UsageError
		if errors.As(err, &ue) {
			fs.Usage()
			return ExitUsage
		}
		return ExitFailure
	}
	if (o.signCert == "") != (o.signKey == "") {
		fmt.Fprintf(stderr, "%s: -sign-cert and -sign-key must be given together\n", name)
		return ExitUsage
	}

	cfg, err := loadConfig(o.config)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return ExitFailure
	}
	o.merge(cfg)

	logger := log.New(io.Discard, "", 0)
	if o.verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	opts := pdffill.Options{
		Logger:   logger,
		Info:     o.info,
		Metadata: metadata(cfg),
	}
	if o.font != "" {
		font, err := fonts.LoadTTF(o.font)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return ExitFailure
		}
		opts.Font = font
	}

	if o.interactive {
		summarize(stdout, req, opts.Info)
		ok, err := confirm(fmt.Sprintf("Write %s?", req.Output))
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return ExitFailure
		}
		if !ok {
			fmt.Fprintln(stderr, "Nothing written")
			return ExitFailure
		}
	}

	result, err := pdffill.FillFile(req, opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return ExitFailure
	}
	logger.Printf("Filled %d of %d fields into %s", len(result.Set), len(result.Set)+len(result.Ignored), req.Output)

	if o.hash {
		digest, err := attest.DigestFile(req.Output)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return ExitFailure
		}
		logger.Printf("Output digest: %s", digest)
		fmt.Fprintf(stdout, "%s  %s\n", digest, req.Output)
	}

	if o.signCert != "" {
		path, err := signOutput(context.Background(), req.Output, o)
		if err != nil {
			fmt.Fprintf(stderr, "%s: failed to sign %s: %v\n", name, req.Output, err)
			return ExitFailure
		}
		logger.Printf("Signature written to %s", path)
	}

	return ExitOK
}

// loadConfig reads path, or the default location when it exists. Without
// a configuration file an empty configuration is returned.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultLocation); err != nil {
			return &config.Config{}, nil
		}
		path = config.DefaultLocation
	}
	return config.Read(path)
}

// merge fills options not given on the command line from cfg.
func (o *options) merge(cfg *config.Config) {
	o.verbose = o.verbose || cfg.Verbose
	if o.font == "" {
		o.font = cfg.Font
	}
	for k, v := range cfg.Info {
		if _, ok := o.info[k]; !ok {
			o.info[k] = v
		}
	}
	if _, ok := o.info["Producer"]; !ok && cfg.Producer != "" {
		o.info["Producer"] = cfg.Producer
	}
	if s := cfg.Sign; s != nil && o.signCert == "" {
		o.signCert, o.signKey = s.Cert, s.Key
		if o.signChain == "" {
			o.signChain = s.Chain
		}
		if o.tsa == "" {
			o.tsa = s.TSA
		}
	}
}

func metadata(cfg *config.Config) *pdffill.Metadata {
	if cfg.Issuer == nil {
		return nil
	}
	m := &pdffill.Metadata{
		Issuer: pdffill.Issuer{
			Name: cfg.Issuer.Name,
			Identity: pdffill.Identity{
				Address:      cfg.Issuer.Address,
				Verification: cfg.Issuer.Verification,
			},
		},
		Global: cfg.GlobalFields,
	}
	for _, f := range cfg.MetadataFields {
		m.Columns = append(m.Columns, pdffill.MetadataColumn{Name: f.Name, Properties: f.Properties})
	}
	return m
}

func summarize(w io.Writer, req *pdffill.Request, info map[string]string) {
	fmt.Fprintf(w, "Template: %s\n", req.Template)
	fmt.Fprintf(w, "Output:   %s\n", req.Output)
	fmt.Fprintf(w, "Form:     %s\n", req.Kind)

	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Fields:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, req.Fields[k])
	}

	if len(info) > 0 {
		fmt.Fprintf(w, "Info:     %s\n", infoFlag(info))
	}
}

func signOutput(ctx context.Context, path string, o options) (string, error) {
	cert, err := attest.LoadCertificate(o.signCert)
	if err != nil {
		return "", err
	}
	key, err := attest.LoadSigner(o.signKey)
	if err != nil {
		return "", err
	}

	signOpts := attest.SignOptions{
		Certificate: cert,
		Signer:      key,
		TSA:         o.tsa,
	}
	if o.signChain != "" {
		chains, err := attest.LoadChain(o.signChain, cert)
		if err != nil {
			return "", err
		}
		signOpts.Chain = chains[0][1:]
	}
	return attest.SignFile(ctx, path, signOpts)
}
