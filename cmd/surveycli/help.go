package main

import "fmt"

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("surveycli version %s\n", version)
}

// PrintHelp prints comprehensive help information
func PrintHelp() {
	fmt.Println("surveycli - offline queries against the survey dataset")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  surveycli [--config file] [--format json|pretty] <command> [options]")
	fmt.Println()

	fmt.Println("COMMANDS:")
	fmt.Println("  info                            Dataset name, size, questions and fingerprint")
	fmt.Println("  options  --question <name>      Distinct answers of a question with counts")
	fmt.Println("  kpis                            Dashboard KPI cards")
	fmt.Println("  summary  --group-by <name>      Group and aggregate (repeat --group-by to combine)")
	fmt.Println("           [--statistic count|percentage|mean] [--measure <name>] [--limit N]")
	fmt.Println("  response --index <N>            Every answer of respondent N (0-based)")
	fmt.Println("  export   --out <file>           Write the filtered responses")
	fmt.Println("                                  .xlsx, .csv or .csv.gz; s3://bucket/key uploads")
	fmt.Println("  audit    [--operation op] [--status s] [--since 24h] [--limit N]")
	fmt.Println("                                  Query the audit database")
	fmt.Println()

	fmt.Println("FILTERS (all dataset commands):")
	fmt.Println(`  --where "Company IN ('Talabat', 'Rabbit') AND City = 'Cairo'"`)
	fmt.Println(`  --where "[Please mention your Fixed Monthly Pay (if any):...] IS NULL"`)
}
