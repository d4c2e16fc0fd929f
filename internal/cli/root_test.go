package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/constants"
)

const fixturePath = "../../testdata/catalogs/bacteria_assembly_summary.txt"

// clearEnv keeps the developer's environment out of the config merge.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{constants.EnvCatalogURL, constants.EnvCacheDir, constants.EnvProxyPassword} {
		t.Setenv(key, "")
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIWithInput(t, "", args...)
}

func runCLIWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	hasConfig := false
	for _, a := range args {
		if a == "--config" || a == "-c" {
			hasConfig = true
		}
	}
	if !hasConfig {
		args = append([]string{"--config", filepath.Join(t.TempDir(), "config.csv")}, args...)
	}

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// cachedFixture copies the test catalog into a fresh cache directory.
func cachedFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, catalog.Bacteria.SummaryFilename()), data, 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRootCommands(t *testing.T) {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	for _, name := range []string{"script", "catalog", "config", "completion"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"config", "verbose", "debug"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestScriptFlags(t *testing.T) {
	cmd := newScriptCmd()
	shorthands := map[string]string{"taxon": "t", "genus": "g", "output": "o", "https": "m"}
	for name, short := range shorthands {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("--%s missing", name)
			continue
		}
		if f.Shorthand != short {
			t.Errorf("--%s shorthand = %q, want %q", name, f.Shorthand, short)
		}
	}
	for _, name := range []string{"complete-only", "include-excluded", "refresh", "strict", "dry-run", "cache-dir", "catalog-url"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("--%s missing", name)
		}
	}
}

func TestScriptDryRun(t *testing.T) {
	clearEnv(t)
	cacheDir := cachedFixture(t)

	out, err := runCLI(t, "script", "-t", "BACTERIA", "-g", "Escherichia", "--complete-only", "-m", "--dry-run", "--cache-dir", cacheDir)
	if err != nil {
		t.Fatalf("script error = %v", err)
	}

	want := "#!/bin/bash\n" +
		"wget -O Escherichia_coli_str._K-12_substr._MG1655_K-12_substr._MG1655_.fna.gz https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/005/845/GCF_000005845.2_ASM584v2/GCF_000005845.2_ASM584v2_genomic.fna.gz\n" +
		"wget -O Escherichia_coli_O157:H7_str._Sakai_O157:H7_str._Sakai_.fna.gz https://ftp.ncbi.nlm.nih.gov/genomes/all/GCF/000/008/865/GCF_000008865.2_ASM886v2/GCF_000008865.2_ASM886v2_genomic.fna.gz\n"
	if out != want {
		t.Errorf("stdout:\n%s\nwant:\n%s", out, want)
	}
}

func TestScriptWritesFile(t *testing.T) {
	clearEnv(t)
	cacheDir := cachedFixture(t)
	prefix := filepath.Join(t.TempDir(), "mtb")

	out, err := runCLI(t, "script", "-t", "bacteria", "-g", "Mycobacterium", "-o", prefix, "--cache-dir", cacheDir)
	if err != nil {
		t.Fatalf("script error = %v", err)
	}
	path := prefix + "_download_script.sh"
	if !strings.Contains(out, "Wrote 1 download commands to "+path) {
		t.Errorf("stdout = %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/bash\nwget -O Mycobacterium_tuberculosis_H37Rv_H37Rv_.fna.gz ftp://") {
		t.Errorf("script = %q", data)
	}
}

func TestScriptErrors(t *testing.T) {
	clearEnv(t)
	cacheDir := cachedFixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid taxon", []string{"script", "-t", "plants", "-g", "Arabidopsis", "--cache-dir", cacheDir}, "plants not in list of 'viral', 'bacteria', 'archaea', 'protozoa', 'fungi'"},
		{"missing taxon", []string{"script", "-g", "Escherichia"}, `required flag(s) "taxon" not set`},
		{"unexpected argument", []string{"script", "-t", "bacteria", "extra"}, "unknown command"},
		{"unsupported source", []string{"catalog", "fetch", "-t", "viral", "--cache-dir", cacheDir, "--catalog-url", "ftp://ftp.ncbi.nlm.nih.gov/genomes/genbank"}, "unsupported catalog source scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCatalogSearch(t *testing.T) {
	clearEnv(t)
	cacheDir := cachedFixture(t)

	out, err := runCLI(t, "catalog", "search", "-t", "bacteria", "-g", "Escherichia coli", "--include-excluded", "--cache-dir", cacheDir)
	if err != nil {
		t.Fatalf("catalog search error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "ACCESSION") {
		t.Errorf("missing header: %q", lines[0])
	}
	for _, acc := range []string{"GCA_000005845.2", "GCA_000008865.2", "GCA_900010005.1"} {
		if !strings.Contains(out, acc) {
			t.Errorf("output missing %s", acc)
		}
	}
	if !strings.Contains(out, "3 assemblies") {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, "catalog", "search", "-t", "bacteria", "-g", "Salmonella", "--cache-dir", cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No matching assemblies.") {
		t.Errorf("output = %q", out)
	}
}

func TestCatalogFetchUsesCache(t *testing.T) {
	clearEnv(t)
	cacheDir := cachedFixture(t)

	out, err := runCLI(t, "catalog", "fetch", "-t", "bacteria", "--cache-dir", cacheDir)
	if err != nil {
		t.Fatalf("catalog fetch error = %v", err)
	}
	if !strings.Contains(out, "(cached,") {
		t.Errorf("output = %q", out)
	}
}

func TestCompletion(t *testing.T) {
	out, err := runCLI(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ncbi-refdl") {
		t.Error("bash completion does not mention the binary")
	}

	names, _ := completeTaxa(nil, nil, "b")
	if len(names) != 1 || names[0] != "bacteria" {
		t.Errorf("completeTaxa(b) = %v", names)
	}
}

func TestInvalidTaxonBeforeConfig(t *testing.T) {
	clearEnv(t)
	badConfig := filepath.Join(t.TempDir(), "config.csv")
	if err := os.WriteFile(badConfig, []byte("proxy_mode,bogus\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"script", []string{"script", "-t", "plants", "-g", "Arabidopsis"}},
		{"catalog fetch", []string{"catalog", "fetch", "-t", "plants"}},
		{"catalog search", []string{"catalog", "search", "-t", "plants", "-g", "Arabidopsis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", badConfig}, tt.args...)
			_, err := runCLI(t, args...)
			if !catalog.IsInvalidTaxonError(err) {
				t.Errorf("error = %v, want invalid taxon error", err)
			}
		})
	}

	// A valid taxon still reaches the broken config.
	_, err := runCLI(t, "--config", badConfig, "script", "-t", "bacteria", "-g", "Escherichia")
	if err == nil || !strings.Contains(err.Error(), "unsupported proxy mode") {
		t.Errorf("error = %v, want config error", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Escherichia coli", "Escherichia coli"},
		{"exact", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"ascii", strings.Repeat("a", 60), strings.Repeat("a", 47) + "..."},
		{"multibyte", strings.Repeat("é", 60), strings.Repeat("é", 47) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, 50)
			if got != tt.want {
				t.Errorf("truncate() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate() produced invalid UTF-8: %q", got)
			}
		})
	}
}
