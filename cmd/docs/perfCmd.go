package docs

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/petlaDB/cmd/util"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/ValentinKolb/petlaDB/lib/document"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cli")

	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the document store",
		Long:    util.WrapString("Runs a benchmark per document operation against the configured engine. All test documents live in a temporary collection that is dropped afterwards."),
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfCollection = "__perf"
	perfNumThreads = 10
	perfDocs       = 100
	perfSkip       = make([]string, 0)

	// latency of single calls, sampled next to the testing.Benchmark averages
	perfRegistry = gometrics.NewRegistry()
)

// perfTests are the benchmarks in execution order
var perfTests = []string{"insert", "find-id", "find-indexed", "find-scan", "count", "update", "delete"}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. insert,count)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "docs"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many documents to prepare for the read, update and delete tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfDocs = viper.GetInt("docs")
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	if perfDocs <= 0 {
		return fmt.Errorf("docs must be positive")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for the document store")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(session.Config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Documents: %d\n", perfDocs)
	fmt.Println()

	database := session.DB
	if err := database.CreateIndex(perfCollection, "serial", docstore.IndexOptions{Unique: true}); err != nil {
		return err
	}
	defer func() {
		if err := database.DropCollection(perfCollection); err != nil {
			log.Errorf("(perf) - error dropping %s: %v", perfCollection, err)
		}
	}()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, test := range perfTests {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(test) {
				return
			}
			benchmark(b, database, test)
		})
		results[test] = result
		printResult(test, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// benchmark runs one test on a freshly prepared collection
func benchmark(b *testing.B, database *docstore.Database, test string) {
	timer := gometrics.GetOrRegisterTimer(test, perfRegistry)

	ids := prepare(database, test)
	b.Cleanup(func() {
		if _, err := database.DeleteMany(perfCollection, nil); err != nil {
			log.Errorf("(%s) - error cleaning up: %v", test, err)
		}
	})

	var serial atomic.Int64
	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			var err error
			start := time.Now()
			switch test {
			case "insert":
				n := int(serial.Add(1))
				_, err = database.InsertOne(perfCollection, perfDocument(perfDocs+n))
			case "find-id":
				_, _, err = database.FindByID(perfCollection, ids[counter%len(ids)])
			case "find-indexed":
				_, err = database.Find(perfCollection, document.MustFields("serial", counter%perfDocs), nil)
			case "find-scan":
				_, err = database.Find(perfCollection, document.MustFields("grupo", document.MustFields("$gte", 5)), nil)
			case "count":
				_, err = database.Count(perfCollection, nil)
			case "update":
				_, _, err = database.UpdateOne(perfCollection,
					document.MustFields("serial", counter%perfDocs),
					document.MustFields("visitas", counter))
			case "delete":
				_, err = database.DeleteByID(perfCollection, ids[counter%len(ids)])
			}
			timer.UpdateSince(start)

			if err != nil {
				log.Errorf("(%s) - error: %v", test, err)
			}
			counter++
		}
	})
}

// prepare inserts perfDocs documents for every test except insert
func prepare(database *docstore.Database, test string) []string {
	if test == "insert" {
		return nil
	}
	list := make([]document.Fields, perfDocs)
	for i := range list {
		list[i] = perfDocument(i)
	}
	docs, err := database.InsertMany(perfCollection, list)
	if err != nil {
		log.Errorf("(%s) - error preparing documents: %v", test, err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID())
	}
	if len(ids) == 0 {
		ids = append(ids, "")
	}
	return ids
}

func perfDocument(serial int) document.Fields {
	return document.MustFields(
		"serial", serial,
		"nombre", fmt.Sprintf("mascota-%d", serial),
		"grupo", serial%10,
		"tags", []string{"perf", strconv.Itoa(serial % 3)},
	)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := latencies(test)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(p[0]), time.Duration(p[1]))
}

// latencies returns the p50 and p99 call latency in nanoseconds
func latencies(test string) []float64 {
	timer, ok := perfRegistry.Get(test).(gometrics.Timer)
	if !ok {
		return []float64{0, 0}
	}
	return timer.Snapshot().Percentiles([]float64{0.5, 0.99})
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := session.Config

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Skipped",
		"Engine", "Codec", "Lock", "Threads", "Documents",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range perfTests {
		result := results[test]
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p := latencies(test)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			skipped,
			string(config.Engine),
			config.Codec,
			strconv.FormatBool(config.Lock),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfDocs),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
