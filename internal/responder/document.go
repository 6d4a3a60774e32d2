package responder

import (
	"errors"
	"fmt"
	"strings"

	"thalrakshak-assistant/internal/document"
	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/vitals"
)

// FormatEligibility 报告分析结果
func (g *Generator) FormatEligibility(report models.VitalsReport, result models.EligibilityResult) string {
	var b strings.Builder
	b.WriteString("Medical Report Analysis\n")
	b.WriteString("Values found in your report:\n")

	var missing []string
	for _, th := range g.opts.Thresholds {
		v, ok := report.Get(th.Field)
		if !ok {
			missing = append(missing, strings.ToLower(th.Label))
			continue
		}
		fmt.Fprintf(&b, "- %s: %s %s\n", th.Label, vitals.FormatValue(v), th.Unit)
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Not found in the report: %s\n", strings.Join(missing, ", "))
	}

	b.WriteString("\n")
	if result.Eligible {
		b.WriteString("Result: all values found are within the donation criteria. You appear eligible to donate.\n")
		b.WriteString("Final eligibility is confirmed by the medical staff at the donation centre.")
		return b.String()
	}

	b.WriteString("Result: you are not eligible to donate at this time.\n")
	for _, reason := range result.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	b.WriteString("Please consult a doctor and try again once these values are back in range.")
	return b.String()
}

// UploadRejected 上传失败的回复（校验失败、解析失败）
func (g *Generator) UploadRejected(name string, err error) string {
	var verr *document.ValidationError
	if errors.As(err, &verr) {
		switch {
		case errors.Is(verr, document.ErrFileTooLarge):
			return fmt.Sprintf("%q is too large (%s). The maximum file size is %s.",
				name, formatBytes(verr.Actual), formatBytes(verr.Limit))
		case errors.Is(verr, document.ErrTooManyPages):
			return fmt.Sprintf("%q has %d pages. Reports can have at most %d pages. "+
				"Please upload only the pages with your test results.", name, verr.Actual, verr.Limit)
		}
	}

	var perr *document.ParseError
	if errors.As(err, &perr) && errors.Is(perr, document.ErrNoText) {
		return fmt.Sprintf("I could not find any text in %q. It may be a scanned image.\n"+
			"Please upload a text-based PDF, for example the report downloaded from your lab's website.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I could not read %q. Please check that:\n", name)
	b.WriteString("- the file is a PDF document\n")
	if perr != nil && perr.Encrypted() {
		b.WriteString("- the file is not password protected (this one is)\n")
	} else {
		b.WriteString("- the file is not password protected\n")
	}
	b.WriteString("- the file is not damaged (try opening it on your device)")
	return b.String()
}

// NoVitalsFound 报告中没有识别到任何指标
func (g *Generator) NoVitalsFound(name string) string {
	labels := make([]string, 0, len(g.opts.Thresholds))
	for _, th := range g.opts.Thresholds {
		labels = append(labels, strings.ToLower(th.Label))
	}
	return fmt.Sprintf("I read %q but could not find any of the values I check (%s).\n"+
		"Make sure the report includes labelled results such as \"Hemoglobin: 13.5 g/dL\" or \"BP: 120/80\".",
		name, strings.Join(labels, ", "))
}

// ImageReceived 图片附件：已收到但不解析
func (g *Generator) ImageReceived(name string) string {
	return fmt.Sprintf("I received the image %q. I can only analyse text-based PDF reports, "+
		"so this image has been forwarded for manual review.", name)
}

// UnsupportedFile 不支持的文件类型
func (g *Generator) UnsupportedFile(name string) string {
	return fmt.Sprintf("%q is not a supported file type. Please upload your medical report as a PDF (up to %s, %d pages).",
		name, formatBytes(g.opts.MaxFileBytes), g.opts.MaxPages)
}
