package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"credit-risk/internal/collector"
	"credit-risk/internal/common/config"
	"credit-risk/internal/common/database"
	"credit-risk/internal/common/logger"
	"credit-risk/internal/common/metrics"
	"credit-risk/internal/dataset"
	"credit-risk/internal/encoder"
	"credit-risk/internal/scoring"

	"github.com/urfave/cli/v3"
)

const jsonFlagName = "json"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  jsonFlagName,
		Usage: "Print JSON instead of a table",
	}
}

// predictCommand exposes one flag per input field. Omitted fields take the
// form defaults and out-of-range numbers are clamped, as on the web form.
func predictCommand() *cli.Command {
	flags := []cli.Flag{modelFlag(), jsonFlag()}
	for _, f := range collector.New().Fields() {
		usage := f.Label
		if len(f.Options) > 0 {
			usage = fmt.Sprintf("%s (%s)", f.Label, strings.Join(f.Options, ", "))
		} else if f.IsNumeric() {
			usage = fmt.Sprintf("%s [%g, %g]", f.Label, f.Min, f.Max)
		}
		flags = append(flags, &cli.StringFlag{
			Name:  f.Name,
			Usage: usage,
			Value: fmt.Sprint(f.Default),
		})
	}

	return &cli.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Predict the default risk of one loan application",
		Flags:   flags,
		Action:  cmdPredict,
	}
}

func sampleCommand() *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Print the head of the train data sample",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "rows",
				Usage: "Number of rows (optional, defaults to dataset.sample_rows)",
			},
			jsonFlag(),
		},
		Action: cmdSample,
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:   "schema",
		Usage:  "Print the encoded feature schema in model order",
		Flags:  []cli.Flag{jsonFlag()},
		Action: cmdSchema,
	}
}

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	model, err := loadModel(cfg)
	if err != nil {
		return err
	}

	pipeline, err := scoring.New(scoring.Options{Predictor: model, Logger: cliLogger(cfg)})
	if err != nil {
		return err
	}

	col := collector.New()
	form := url.Values{}
	for _, f := range col.Fields() {
		form.Set(f.Name, cmd.String(f.Name))
	}

	raw, err := col.FromForm(form)
	if err != nil {
		return err
	}

	res, err := pipeline.Predict(ctx, raw, metrics.SurfaceCLI)
	if err != nil {
		return err
	}

	w := writer(cmd)
	if cmd.Bool(jsonFlagName) {
		return printJSON(w, map[string]interface{}{
			"input":      res.Input,
			"shape":      res.Input.Shape(),
			"prediction": res.Prediction,
		})
	}

	fmt.Fprintln(w, "Input Parameters:")
	cols := res.Input.Columns()
	header := make([]string, len(cols))
	row := make([]string, len(cols))
	for i, c := range cols {
		header[i], row[i] = c.Name, c.Value
	}
	if err := printTable(w, header, [][]string{row}); err != nil {
		return err
	}
	shape := res.Input.Shape()
	fmt.Fprintf(w, "Shape of input data: (%d, %d)\n\n", shape[0], shape[1])

	p := res.Prediction
	fmt.Fprintf(w, "Prediction: ['%s']\n", p.Class)
	fmt.Fprintf(w, "Prediction probability: [%v]\n\n", p.Probability)
	fmt.Fprintf(w, "The model predicts: %s\n", p.Label)
	fmt.Fprintf(w, "Probability of Default: %s\n", p.ProbabilityText)
	return nil
}

func cmdSample(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rows := cfg.Dataset.SampleRows
	if cmd.IsSet("rows") {
		rows = int(cmd.Int("rows"))
	}

	var pg *database.PostgresClient
	if cfg.Dataset.Source == config.DatasetSourcePostgres {
		if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
			return err
		}
		defer pg.Close()
	}

	src, err := dataset.New(cfg.Dataset, pg)
	if err != nil {
		return err
	}

	table, err := src.Head(ctx, rows)
	if err != nil {
		return err
	}

	w := writer(cmd)
	if cmd.Bool(jsonFlagName) {
		return printJSON(w, table)
	}

	fmt.Fprintln(w, "Train Data Sample:")
	return printTable(w, table.Columns, table.Rows)
}

func cmdSchema(ctx context.Context, cmd *cli.Command) error {
	schema := encoder.LoanSchema()
	w := writer(cmd)

	if cmd.Bool(jsonFlagName) {
		categories := make(map[string]string)
		for _, c := range schema.Categoricals() {
			categories[c.Field] = c.Reference()
		}
		return printJSON(w, map[string]interface{}{
			"features":   schema.Names(),
			"references": categories,
		})
	}

	rows := make([][]string, 0, schema.Len())
	for i, n := range schema.Names() {
		rows = append(rows, []string{fmt.Sprint(i), n})
	}
	if err := printTable(w, []string{"index", "feature"}, rows); err != nil {
		return err
	}

	for _, c := range schema.Categoricals() {
		fmt.Fprintf(w, "%s reference level: %s\n", c.Field, c.Reference())
	}
	return nil
}

// cliLogger keeps stdout for command output.
func cliLogger(cfg *config.Config) logger.Logger {
	return logger.NewZapAdapter(logger.New(cfg.Logging.Level, cfg.Logging.Format, "stderr"))
}

func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
