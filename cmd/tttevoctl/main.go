package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"tttevo/internal/eval"
	"tttevo/internal/evo"
	"tttevo/internal/model"
	"tttevo/internal/params"
	"tttevo/internal/storage"
	"tttevo/pkg/tttevo"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "new":
		return runNew(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "list":
		return runList(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "score":
		return runScore(ctx, args[1:])
	case "mutate":
		return runMutate(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "import":
		return runImport(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func loadSettings() (settings, error) {
	s := defaultSettings()
	if err := applyEnv(&s); err != nil {
		return settings{}, fmt.Errorf("environment: %w", err)
	}
	return s, nil
}

func newLogger(verbose bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "tttevoctl: ", log.LstdFlags|log.Lmicroseconds)
}

func openClient(s settings, logger *log.Logger) (*tttevo.Client, error) {
	opts := s.clientOptions()
	logger.Printf("opening store=%s path=%q", opts.StoreKind, opts.Path)
	return tttevo.New(opts)
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func runInit(_ context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("init", &s)
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Fprintf(stdout, "initialized store=%s\n", s.Store)
	return nil
}

func runNew(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("new", &s)
	id := fs.String("id", "", "engine id (default: random uuid)")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	logger := newLogger(s.Verbose)

	opts, err := s.engineOptions()
	if err != nil {
		return err
	}
	opts.ID = *id
	engine, err := tttevo.NewEngine(opts)
	if err != nil {
		return err
	}
	client, err := openClient(s, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.Save(ctx, engine)
	if err != nil {
		return err
	}
	logger.Printf("saved %s with %d parameter arrays", record.ID, len(record.Arrays))
	fmt.Fprintf(stdout, "created id=%s version=%s\n", record.ID, record.EngineVersion)
	return nil
}

func runShow(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("show", &s)
	id := fs.String("id", "", "engine id")
	jsonOut := fs.Bool("json", false, "emit the stored record as JSON")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("show requires --id")
	}

	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.Record(ctx, *id)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	sig := evo.ComputeParameterSignature(record)
	fmt.Fprintf(stdout, "id=%s parent_id=%s version=%s created=%s fingerprint=%s l2=%.6f max_abs=%.6f\n",
		record.ID,
		record.ParentID,
		record.EngineVersion,
		formatAge(record.CreatedAtUTC),
		sig.Fingerprint,
		sig.Summary.L2Norm,
		sig.Summary.MaxAbs,
	)
	for _, name := range params.Names() {
		m, ok := record.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(stdout, "%s %dx%d %s\n", name, m.Rows, m.Cols, formatValues(m.Values))
	}
	return nil
}

func runList(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("list", &s)
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}

	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	ids, err := client.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(stdout, "no engines")
		return nil
	}
	for _, id := range ids {
		record, err := client.Record(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "id=%s parent_id=%s version=%s created=%s\n",
			record.ID,
			record.ParentID,
			record.EngineVersion,
			formatAge(record.CreatedAtUTC),
		)
	}
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("evaluate", &s)
	id := fs.String("id", "", "engine id")
	boardText := fs.String("board", "", "board rows separated by '/', cells by ','")
	jsonOut := fs.Bool("json", false, "emit the score breakdown as JSON")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" || *boardText == "" {
		return errors.New("evaluate requires --id and --board")
	}
	board, err := tttevo.ParseBoard(*boardText)
	if err != nil {
		return err
	}

	engine, client, err := loadEngine(ctx, s, *id)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	score, err := engine.Breakdown(board)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(score)
	}
	fmt.Fprintf(stdout, "total=%.6f conv=%.6f linear=%.6f threat=%.1f threats=%d\n",
		score.Total, score.Conv, score.Linear, score.Threat, len(score.Threats))
	for _, line := range score.Threats {
		fmt.Fprintf(stdout, "threat kind=%s index=%d\n", line.Kind, line.Index)
	}
	return nil
}

func runScore(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("score", &s)
	id := fs.String("id", "", "engine id")
	boardsPath := fs.String("boards", "", "file with one board per line ('-' reads stdin)")
	fs.IntVar(&s.Workers, "workers", s.Workers, "parallel scoring workers (<=0 uses GOMAXPROCS)")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" || *boardsPath == "" {
		return errors.New("score requires --id and --boards")
	}
	logger := newLogger(s.Verbose)

	texts, err := readBoardLines(*boardsPath)
	if err != nil {
		return err
	}
	boards := make([]eval.Board, 0, len(texts))
	for i, text := range texts {
		board, err := tttevo.ParseBoard(text)
		if err != nil {
			return fmt.Errorf("board %d: %w", i, err)
		}
		boards = append(boards, board)
	}

	engine, client, err := loadEngine(ctx, s, *id)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	start := time.Now()
	scores, err := tttevo.ScoreBoards(ctx, engine, boards, s.Workers)
	if err != nil {
		return err
	}
	logger.Printf("scored %s boards in %s", humanize.Comma(int64(len(boards))), time.Since(start))
	for i, score := range scores {
		fmt.Fprintf(stdout, "%d\t%.6f\t%s\n", i, score, texts[i])
	}
	return nil
}

func runMutate(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("mutate", &s)
	id := fs.String("id", "", "parent engine id")
	count := fs.Int("count", 1, "number of offspring to create")
	fs.Float64Var(&s.Rate, "rate", s.Rate, "probability that each parameter is perturbed")
	fs.Float64Var(&s.Scale, "scale", s.Scale, "standard deviation of the perturbation")
	fs.StringVar(&s.Operator, "operator", s.Operator, "mutation operator: "+strings.Join(evo.ListOperators(), "|"))
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("mutate requires --id")
	}
	if *count <= 0 {
		return fmt.Errorf("count must be > 0, got %d", *count)
	}
	logger := newLogger(s.Verbose)

	parent, client, err := loadEngine(ctx, s, *id)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	op, err := evo.ResolveOperator(s.Operator, evo.OperatorConfig{
		Rand:  newRand(s.Seed),
		Rate:  s.Rate,
		Scale: s.Scale,
	})
	if err != nil {
		return err
	}
	for i := 0; i < *count; i++ {
		child := parent.Spawn()
		if err := child.Apply(ctx, op); err != nil {
			return err
		}
		record, err := client.Save(ctx, child)
		if err != nil {
			return err
		}
		distance, err := evo.ParameterDistance(parent.Parameters(), record)
		if err != nil {
			return err
		}
		logger.Printf("offspring %d/%d rate=%g scale=%g", i+1, *count, s.Rate, s.Scale)
		fmt.Fprintf(stdout, "offspring id=%s parent_id=%s op=%s fingerprint=%s distance=%.6f\n",
			child.ID(),
			parent.ID(),
			op.Name(),
			evo.ComputeParameterSignature(record).Fingerprint,
			distance,
		)
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("lineage", &s)
	id := fs.String("id", "", "engine id to start from")
	limit := fs.Int("limit", 50, "max lineage rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit lineage rows as JSON")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("lineage requires --id")
	}

	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	lineage, err := client.Lineage(ctx, *id, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lineage)
	}
	for depth, item := range lineage {
		fmt.Fprintf(stdout, "depth=%d id=%s parent_id=%s version=%s created=%s\n",
			depth,
			item.ID,
			item.ParentID,
			item.EngineVersion,
			formatAge(item.CreatedAtUTC),
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("export", &s)
	id := fs.String("id", "", "engine id")
	outPath := fs.String("out", "", "destination file (default: stdout)")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("export requires --id")
	}

	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.Record(ctx, *id)
	if err != nil {
		return err
	}
	data, err := storage.EncodeParameters(record)
	if err != nil {
		return err
	}
	if *outPath == "" {
		_, err := stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(stdout, "exported id=%s path=%s size=%s\n", record.ID, *outPath, humanize.Bytes(uint64(len(data))))
	return nil
}

func runImport(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("import", &s)
	inPath := fs.String("in", "", "record file to import")
	id := fs.String("id", "", "override the record id")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("import requires --in")
	}
	logger := newLogger(s.Verbose)

	data, err := os.ReadFile(*inPath)
	if err != nil {
		return err
	}
	record, err := decodeImport(data)
	if err != nil {
		return fmt.Errorf("import %s: %w", *inPath, err)
	}
	if *id != "" {
		record.ID = *id
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
		logger.Printf("record has no id, assigned %s", record.ID)
	}

	client, err := openClient(s, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.SaveRecord(ctx, record); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported id=%s size=%s\n", record.ID, humanize.Bytes(uint64(len(data))))
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	fs := newFlagSet("delete", &s)
	id := fs.String("id", "", "engine id")
	if err := parseFlags(fs, &s, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("delete requires --id")
	}

	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted id=%s\n", *id)
	return nil
}

func loadEngine(ctx context.Context, s settings, id string) (*tttevo.Engine, *tttevo.Client, error) {
	opts, err := s.engineOptions()
	if err != nil {
		return nil, nil, err
	}
	client, err := openClient(s, newLogger(s.Verbose))
	if err != nil {
		return nil, nil, err
	}
	engine, err := client.Load(ctx, id, opts)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return engine, client, nil
}

// decodeImport accepts both stamped exports and bare records. Stamped input
// must carry the current schema and codec versions.
func decodeImport(data []byte) (model.ParameterRecord, error) {
	var record model.ParameterRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ParameterRecord{}, err
	}
	if record.SchemaVersion == 0 && record.CodecVersion == 0 {
		return record, nil
	}
	return storage.DecodeParameters(data)
}

func readBoardLines(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no boards in %s", path)
	}
	return lines, nil
}

func formatAge(createdAtUTC string) string {
	t, err := time.Parse(time.RFC3339, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(t)
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: tttevoctl <init|new|show|list|evaluate|score|mutate|lineage|export|import|delete> [flags]", msg)
}
