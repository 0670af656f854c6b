package summarizer

import (
	"encoding/json"
	"strings"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

const analystRole = "You are a Financial Fraud Analyst."

func buildPrompt(req Request, highRisk []models.RiskAnnotation) string {
	var b strings.Builder
	b.WriteString(analystRole)
	b.WriteString("\n\n")

	if req.IsFollowUp {
		b.WriteString("Earlier you produced this report for a manager:\n")
		b.WriteString(req.PriorSummary)
		b.WriteString("\n\nAnswer the manager's follow-up question using that report as context. ")
		b.WriteString("Keep it professional and concise.\n\nQuestion: ")
		b.WriteString(req.Guidance)
		return b.String()
	}

	if len(highRisk) > 0 {
		rows, _ := json.MarshalIndent(highRisk, "", "  ")
		b.WriteString("Analyze these high-risk transactions:\n")
		b.Write(rows)
		b.WriteString("\n\n")
	}
	if req.Content != "" {
		b.WriteString("The following document could not be scored row by row. Read it directly:\n")
		b.WriteString(req.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("1. Summarize the suspicious patterns.\n")
	b.WriteString("2. Give a risk assessment (Low/Medium/High).\n")
	b.WriteString("3. Suggest immediate actions for the manager.\n")
	b.WriteString("Keep it professional and concise.\n")
	if g := strings.TrimSpace(req.Guidance); g != "" {
		b.WriteString("\nAnalysis guidance from the requester: ")
		b.WriteString(g)
		b.WriteString("\n")
	}
	return b.String()
}
