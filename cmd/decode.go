package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/explorrrr/boj-client/internal/bojerr"
	"github.com/explorrrr/boj-client/internal/decode"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/pipeline"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/spf13/cobra"
)

var (
	decodeContentType string
	decodeEncoding    string
	decodeNoFallback  bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <code|layer|metadata> [FILE|-]",
	Short: "Decode a saved API response body offline",
	Long: `Decode a response body saved from the API (for example with curl) through
the same JSON/CSV detection and fallback the live commands use, and render
it in any output format.

The body is read from FILE, or from stdin when FILE is "-" or omitted and
stdin is piped. --content-type supplies the header the server sent, if known.
CSV bodies are assumed Shift_JIS for --lang jp and UTF-8 for --lang en unless
--encoding says otherwise.`,
	Example: `  curl -s "$URL" | boj decode code
  boj decode metadata fm08.csv --content-type "text/csv; charset=Shift_JIS"
  boj decode layer body.json --format jsonl`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"code", "layer", "metadata"},
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		path := ""
		if len(args) == 2 {
			path = args[1]
		}
		if (path == "" || path == "-") && !pipeline.StdinPiped() {
			return fmt.Errorf("no input: pass FILE or pipe a response body on stdin")
		}
		body, err := pipeline.ReadPayload(path, os.Stdin)
		if err != nil {
			return err
		}

		hint, err := decodeHint(deps.Config.Lang)
		if err != nil {
			return err
		}
		opts := decode.DefaultOptions()
		opts.FallbackToStructured = !decodeNoFallback
		dec := decode.New(opts)

		start := time.Now()
		var (
			result *model.Result
			meta   model.ResponseMeta
		)
		switch strings.ToLower(args[0]) {
		case "code":
			resp, err := dec.DecodeCode(body, decodeContentType, hint)
			if err != nil {
				return err
			}
			meta = resp.Meta
			result = newResult(model.KindCodeData, "decode code", resp, model.PointCount(resp.Series))
		case "layer":
			resp, err := dec.DecodeLayer(body, decodeContentType, hint)
			if err != nil {
				return err
			}
			meta = resp.Meta
			result = newResult(model.KindLayerData, "decode layer", resp, model.PointCount(resp.Series))
		case "metadata":
			resp, err := dec.DecodeMetadata(body, decodeContentType, hint)
			if err != nil {
				return err
			}
			meta = resp.Meta
			result = newResult(model.KindMetadata, "decode metadata", resp, len(resp.Entries))
		default:
			return fmt.Errorf("unknown endpoint %q: expected code, layer or metadata", args[0])
		}
		if !meta.OK() {
			return bojerr.API(meta.Status, meta.MessageID, meta.Message)
		}
		result.Warnings = noDataWarning(meta)
		result.Stats.DurationMs = time.Since(start).Milliseconds()
		return emit(deps, result)
	},
}

// decodeHint picks the CSV encoding from --encoding, else from the language.
func decodeHint(lang string) (query.CSVEncoding, error) {
	if decodeEncoding != "" {
		return query.ParseCSVEncoding(decodeEncoding)
	}
	l, err := query.ParseLanguage(lang)
	if err != nil {
		return query.ShiftJIS, err
	}
	if l == query.LangEN {
		return query.UTF8, nil
	}
	return query.ShiftJIS, nil
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeContentType, "content-type", "", "Content-Type header the body was served with")
	decodeCmd.Flags().StringVar(&decodeEncoding, "encoding", "", "CSV character encoding: shift_jis|utf-8 (default from --lang)")
	decodeCmd.Flags().BoolVar(&decodeNoFallback, "no-fallback", false, "do not retry a failed CSV decode as JSON")
}
