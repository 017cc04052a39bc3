// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// qipc-gen introspects tables on a live q process and generates Go model
// declarations for them.
//
//	qipc-gen generate --host localhost --port 5000 --tables trade,quote --output ./models
//	qipc-gen generate --service EMR.SER.HDB.1 --market fx --env prod --tables trade
//
// Exit codes: 0 success, 1 configuration error, 2 RPC error.
package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/Query-farm/qipc-go/qipc"
	"github.com/Query-farm/qipc-go/qns"
)

const (
	exitConfigError = 1
	exitRPCError    = 2
)

type options struct {
	host     string
	port     int
	user     string
	password string
	useTLS   bool
	noVerify bool
	service  string
	market   string
	env      string
	dataDir  string
	tables   string
	output   string
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:           "qipc-gen",
		Short:         "Tools for working with q/kdb+ from Go",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	gen := &cobra.Command{
		Use:   "generate",
		Short: "Introspect q tables and generate typed model declarations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts)
		},
	}

	gen.Flags().StringVar(&opts.host, "host", "", "q hostname")
	gen.Flags().IntVar(&opts.port, "port", 0, "q port")
	gen.Flags().StringVar(&opts.user, "user", "", "q username")
	gen.Flags().StringVar(&opts.password, "password", "", "q password")
	gen.Flags().BoolVar(&opts.useTLS, "tls", false, "enable TLS")
	gen.Flags().BoolVar(&opts.noVerify, "tls-no-verify", false, "disable TLS certificate verification")
	gen.Flags().StringVar(&opts.service, "service", "", "service name (DATASET.CLUSTER.DBTYPE.NODE)")
	gen.Flags().StringVar(&opts.market, "market", "", "registry market (required with --service)")
	gen.Flags().StringVar(&opts.env, "env", "", "registry environment (required with --service)")
	gen.Flags().StringVar(&opts.dataDir, "data-dir", "./qns", "registry CSV directory")
	gen.Flags().StringVar(&opts.tables, "tables", "", "comma-separated table names to introspect")
	gen.Flags().StringVar(&opts.output, "output", "./models", "output directory for generated files")
	gen.MarkFlagRequired("tables")

	root.AddCommand(gen)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitConfigError)
	}
}

func runGenerate(opts *options) error {
	engine, err := buildEngine(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, qns.ErrRegistry) {
			os.Exit(exitRPCError)
		}
		os.Exit(exitConfigError)
	}

	names := []string{}
	for _, t := range strings.Split(opts.tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			names = append(names, t)
		}
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "error: --tables is empty")
		os.Exit(exitConfigError)
	}

	session, err := qipc.NewSession(engine)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitRPCError)
	}
	defer session.Close()

	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitConfigError)
	}

	for _, name := range names {
		model, err := session.Reflect(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reflecting %s: %v\n", name, err)
			os.Exit(exitRPCError)
		}
		path := filepath.Join(opts.output, name+".go")
		if err := writeModelFile(path, model); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(exitConfigError)
		}
		fmt.Println("wrote", path)
	}
	return nil
}

func buildEngine(opts *options) (*qipc.Engine, error) {
	if opts.service != "" {
		if opts.market == "" || opts.env == "" {
			return nil, fmt.Errorf("--market and --env are required with --service")
		}
		client, err := qns.New(opts.market, opts.env, opts.dataDir,
			qns.WithCredentials(opts.user, opts.password))
		if err != nil {
			return nil, err
		}
		return client.Engine(opts.service)
	}

	if opts.host == "" || opts.port == 0 {
		return nil, fmt.Errorf("provide either --host/--port or --service")
	}
	engine := &qipc.Engine{
		Host:     opts.host,
		Port:     opts.port,
		User:     opts.user,
		Password: opts.password,
	}
	if opts.useTLS || opts.noVerify {
		engine.TLS = &tls.Config{InsecureSkipVerify: opts.noVerify}
	}
	return engine, nil
}

var modelTemplate = template.Must(template.New("model").Parse(`// Code generated by qipc-gen. DO NOT EDIT.

package models

import "github.com/Query-farm/qipc-go/qipc"

// {{.GoName}} is the reflected model of the {{.Table}} table.
var {{.GoName}} = qipc.MustModel("{{.Table}}",
{{- range .Fields}}
	{{.}},
{{- end}}
)
`))

type templateData struct {
	GoName string
	Table  string
	Fields []string
}

func writeModelFile(path string, m *qipc.Model) error {
	data := templateData{
		GoName: goName(m.Name()),
		Table:  m.Name(),
	}
	for _, f := range m.Fields() {
		data.Fields = append(data.Fields, fieldDecl(f))
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return modelTemplate.Execute(out, data)
}

// goName turns daily_price into DailyPrice.
func goName(table string) string {
	parts := strings.Split(table, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

var kindCtor = map[qipc.Kind]string{
	qipc.KBoolean:   "BoolField",
	qipc.KGUID:      "GUIDField",
	qipc.KByte:      "ByteField",
	qipc.KShort:     "ShortField",
	qipc.KInt:       "IntField",
	qipc.KLong:      "LongField",
	qipc.KReal:      "RealField",
	qipc.KFloat:     "FloatField",
	qipc.KChar:      "CharField",
	qipc.KSymbol:    "SymbolField",
	qipc.KTimestamp: "TimestampField",
	qipc.KMonth:     "MonthField",
	qipc.KDate:      "DateField",
	qipc.KDatetime:  "DatetimeField",
	qipc.KTimespan:  "TimespanField",
	qipc.KMinute:    "MinuteField",
	qipc.KSecond:    "SecondField",
	qipc.KTime:      "TimeField",
}

var kindConst = map[qipc.Kind]string{
	qipc.KBoolean:   "qipc.KBoolean",
	qipc.KGUID:      "qipc.KGUID",
	qipc.KByte:      "qipc.KByte",
	qipc.KShort:     "qipc.KShort",
	qipc.KInt:       "qipc.KInt",
	qipc.KLong:      "qipc.KLong",
	qipc.KReal:      "qipc.KReal",
	qipc.KFloat:     "qipc.KFloat",
	qipc.KChar:      "qipc.KChar",
	qipc.KSymbol:    "qipc.KSymbol",
	qipc.KTimestamp: "qipc.KTimestamp",
	qipc.KMonth:     "qipc.KMonth",
	qipc.KDate:      "qipc.KDate",
	qipc.KDatetime:  "qipc.KDatetime",
	qipc.KTimespan:  "qipc.KTimespan",
	qipc.KMinute:    "qipc.KMinute",
	qipc.KSecond:    "qipc.KSecond",
	qipc.KTime:      "qipc.KTime",
}

func fieldDecl(f qipc.Field) string {
	var opts []string
	if f.PrimaryKey {
		opts = append(opts, "qipc.Key()")
	}
	switch f.Attr {
	case qipc.AttrSorted:
		opts = append(opts, "qipc.WithAttr(qipc.AttrSorted)")
	case qipc.AttrUnique:
		opts = append(opts, "qipc.WithAttr(qipc.AttrUnique)")
	case qipc.AttrParted:
		opts = append(opts, "qipc.WithAttr(qipc.AttrParted)")
	case qipc.AttrGrouped:
		opts = append(opts, "qipc.WithAttr(qipc.AttrGrouped)")
	}
	suffix := ""
	if len(opts) > 0 {
		suffix = ", " + strings.Join(opts, ", ")
	}

	if f.Kind == qipc.KMixed {
		elem := kindConst[f.Elem]
		if elem == "" {
			elem = "qipc.KMixed"
		}
		return fmt.Sprintf("qipc.ListField(%q, %s%s)", f.Name, elem, suffix)
	}
	ctor, ok := kindCtor[f.Kind]
	if !ok {
		ctor = "SymbolField"
	}
	return fmt.Sprintf("qipc.%s(%q%s)", ctor, f.Name, suffix)
}
