// Benchmark tool for measuring Caracara against labeled synthetic data.
//
// Usage:
//
//	go run cmd/benchmark/main.go -n 50000 -fraud-rate 0.15 -seed 42
//
// This tool:
//  1. Generates a seeded synthetic duplicata dataset (with fraud labels)
//  2. Runs the scoring engine over the full batch
//  3. Compares flagged cases (score > threshold) with actual fraud labels
//  4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/engine"
	"github.com/opensource-finance/caracara/internal/synthetic"
)

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Fraud flagged above threshold
	FalsePositives int64 // Non-fraud flagged above threshold
	TrueNegatives  int64 // Non-fraud below threshold
	FalseNegatives int64 // Fraud below threshold (missed fraud!)

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
}

func main() {
	count := flag.Int("n", 50000, "Number of normal receivables to generate")
	creditors := flag.Int("creditors", 50, "Number of creditor companies")
	debtors := flag.Int("debtors", 200, "Number of debtor companies")
	fraudRate := flag.Float64("fraud-rate", 0.15, "Fraction of fraudulent records to inject")
	seed := flag.Int64("seed", 42, "Random seed for the generator")
	threshold := flag.Float64("threshold", 3.0, "Score threshold for flagging a case")
	runs := flag.Int("runs", 3, "Number of scoring passes to average")
	verbose := flag.Bool("verbose", false, "Print each flagged case")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        CARACARA BENCHMARK - Synthetic Fraud Detection         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nReceivables: %d\n", *count)
	fmt.Printf("Creditors:   %d\n", *creditors)
	fmt.Printf("Debtors:     %d\n", *debtors)
	fmt.Printf("Fraud Rate:  %.2f\n", *fraudRate)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Printf("Threshold:   %.1f\n", *threshold)
	fmt.Printf("Runs:        %d\n", *runs)
	fmt.Println()

	// Generate dataset
	fmt.Printf("Generating synthetic dataset...\n")
	factory := synthetic.NewFactory(*seed, time.Now().UTC())
	dataset := factory.Generate(domain.SeedConfig{
		Creditors:   *creditors,
		Debtors:     *debtors,
		Receivables: *count,
		FraudRate:   *fraudRate,
		Seed:        *seed,
	})
	fmt.Printf("✓ Generated %d receivables\n", len(dataset))

	fraudCount := 0
	for i := range dataset {
		if dataset[i].IsFraud() {
			fraudCount++
		}
	}
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(dataset)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(dataset)-fraudCount, 100*float64(len(dataset)-fraudCount)/float64(len(dataset)))

	// Run benchmark
	eng := engine.New(domain.EngineConfig{AlertThreshold: *threshold})
	fmt.Printf("\nScoring %d receivables x %d runs...\n", len(dataset), *runs)

	var scored []domain.ScoredReceivable
	startTime := time.Now()
	for i := 0; i < *runs; i++ {
		var err error
		_, scored, err = eng.AnalyzeScored(dataset, engine.Options{})
		if err != nil {
			fmt.Printf("ERROR: scoring failed: %v\n", err)
			return
		}
	}
	duration := time.Since(startTime)

	metrics := buildMetrics(scored, *threshold, *verbose)
	printResults(metrics, duration, *runs)
}

func buildMetrics(scored []domain.ScoredReceivable, threshold float64, verbose bool) *Metrics {
	m := &Metrics{}

	for i := range scored {
		s := &scored[i]
		m.TotalProcessed++

		actual := s.IsFraud()
		if actual {
			m.TotalFraud++
		} else {
			m.TotalNonFraud++
		}

		predicted := s.RiskScore > threshold
		switch {
		case predicted && actual:
			m.TruePositives++
		case predicted && !actual:
			m.FalsePositives++
		case !predicted && !actual:
			m.TrueNegatives++
		default:
			m.FalseNegatives++
		}

		if verbose && predicted {
			status := "✓"
			if !actual {
				status = "✗"
			}
			fmt.Printf("%s %-12s | Amount: R$%12.2f | Tier: %-8s | Score: %5.2f | Fraud: %v (%s)\n",
				status,
				s.CreditorName,
				s.Amount,
				s.RiskTier,
				s.RiskScore,
				actual,
				s.FraudType,
			)
		}
	}

	return m
}

func printResults(m *Metrics, duration time.Duration, runs int) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Fraud:      %d\n", m.TotalFraud)
	fmt.Printf("   Total Non-Fraud:  %d\n", m.TotalNonFraud)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                  FLAGGED     CLEARED")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  F  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NF  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged cases, how many were actual fraud)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of fraud, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalFraud > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalFraud) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalFraud) * 100
		fmt.Printf("   Fraud Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalFraud, detectionRate)
		fmt.Printf("   Fraud Missed:      %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalFraud, missRate)
	}
	if m.TotalNonFraud > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalNonFraud) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalNonFraud, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v  (%d runs)\n", duration.Round(time.Millisecond), runs)
	if m.TotalProcessed > 0 && runs > 0 {
		perRun := duration / time.Duration(runs)
		tps := float64(m.TotalProcessed) / perRun.Seconds()
		fmt.Printf("   Per Run:          %v\n", perRun.Round(time.Millisecond))
		fmt.Printf("   Throughput:       %.2f records/sec\n", tps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most fraud")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some fraud")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant fraud being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most fraud is being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - alerts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
