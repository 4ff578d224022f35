package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, generator string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	corpus := filepath.Join(dir, "policies")
	if err := os.Mkdir(corpus, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"refunds.txt":  "Refund policy: refunds are issued to the original payment method within 5 business days. You have 30 days to return a product.",
		"shipping.md":  "Orders can be cancelled before shipping. Once an order has shipped it cannot be cancelled. Return shipping is free for defective items.",
		"ignored.json": `{"not": "a policy"}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(corpus, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := "generator:\n" + generator +
		"corpus:\n  dir: " + corpus + "\n" +
		"evaluation:\n  output: " + filepath.Join(dir, "out", "report.json") + "\n"
	cfgPath = filepath.Join(dir, "policyqa.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dir
}

func streams(in string) (Streams, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return Streams{In: strings.NewReader(in), Out: &out, Err: &errOut}, &out, &errOut
}

func TestRun_Usage(t *testing.T) {
	s, out, _ := streams("")
	if code := Run(nil, s); code != ExitUsage {
		t.Errorf("no args: code %d", code)
	}
	if !strings.Contains(out.String(), "policyqa <command>") {
		t.Errorf("usage: %s", out.String())
	}
	s, _, errOut := streams("")
	if code := Run([]string{"frobnicate"}, s); code != ExitUsage {
		t.Errorf("unknown: code %d", code)
	}
	if !strings.Contains(errOut.String(), "Unknown command: frobnicate") {
		t.Errorf("stderr: %s", errOut.String())
	}
	s, _, _ = streams("")
	if code := Run([]string{"help"}, s); code != ExitOK {
		t.Errorf("help: code %d", code)
	}
}

func TestEval_WritesReport(t *testing.T) {
	cfgPath, dir := writeFixture(t, "  type: disabled\n")
	s, out, errOut := streams("")
	if code := Run([]string{"eval", "-config", cfgPath}, s); code != ExitOK {
		t.Fatalf("code %d, stderr: %s", code, errOut.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "out", "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		Total   int `json:"total"`
		Results []struct {
			Question   string   `json:"question"`
			Confidence string   `json:"confidence"`
			Sources    []string `json:"sources"`
			Score      string   `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Total != 8 || len(report.Results) != 8 {
		t.Fatalf("unexpected report size %d/%d", report.Total, len(report.Results))
	}
	for _, r := range report.Results {
		if r.Confidence == "medium" {
			t.Errorf("disabled generator produced medium confidence for %q", r.Question)
		}
	}
	if !strings.Contains(out.String(), "8 questions:") {
		t.Errorf("stdout: %s", out.String())
	}
}

func TestEval_CustomBattery(t *testing.T) {
	cfgPath, dir := writeFixture(t, "  type: disabled\n")
	cases := filepath.Join(dir, "cases.yaml")
	os.WriteFile(cases, []byte("cases:\n  - question: Can I cancel after shipping?\n    expected: answerable\n"), 0o644)
	report := filepath.Join(dir, "custom.json")
	s, _, errOut := streams("")
	if code := Run([]string{"eval", "-config", cfgPath, "-cases", cases, "-out", report}, s); code != ExitOK {
		t.Fatalf("code %d, stderr: %s", code, errOut.String())
	}
	data, _ := os.ReadFile(report)
	if !strings.Contains(string(data), `"total": 1`) {
		t.Errorf("report: %s", data)
	}
}

func TestAsk_PlainREPL(t *testing.T) {
	orig := isTerminal
	isTerminal = func(io.Writer) bool { return false }
	t.Cleanup(func() { isTerminal = orig })

	cfgPath, _ := writeFixture(t, "  type: disabled\n")
	s, out, errOut := streams("How long do I have to return a product?\n\nquit\nWhat is your refund policy?\n")
	if code := Run([]string{"ask", "-config", cfgPath}, s); code != ExitOK {
		t.Fatalf("code %d, stderr: %s", code, errOut.String())
	}
	got := out.String()
	for _, want := range []string{"ANSWER", "Confidence: low", "Sources: refunds.txt", "Documents Retrieved: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "ANSWER") != 1 {
		t.Error("questions after quit should not be answered")
	}
}

func TestAsk_MissingAPIKey(t *testing.T) {
	t.Setenv("POLICYQA_TEST_MISSING_KEY", "")
	cfgPath, _ := writeFixture(t, "  type: openai\n  openai:\n    api_key_env: POLICYQA_TEST_MISSING_KEY\n")
	s, _, errOut := streams("")
	if code := Run([]string{"ask", "-config", cfgPath}, s); code != ExitError {
		t.Fatalf("code %d", code)
	}
	if !strings.Contains(errOut.String(), "POLICYQA_TEST_MISSING_KEY") {
		t.Errorf("stderr: %s", errOut.String())
	}
}

func TestAsk_MissingCorpus(t *testing.T) {
	cfgPath, _ := writeFixture(t, "  type: disabled\n")
	s, _, errOut := streams("")
	if code := Run([]string{"ask", "-config", cfgPath, "-corpus", filepath.Join(t.TempDir(), "none")}, s); code != ExitError {
		t.Fatalf("code %d", code)
	}
	if !strings.Contains(errOut.String(), "corpus") {
		t.Errorf("stderr: %s", errOut.String())
	}
}
