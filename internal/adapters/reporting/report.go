package reporting

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/emperornerd/GhostWalk/internal/core/services/scheduler"
)

// WriteSessionReport renders a one-page PDF summary of a run. Nothing
// in it is needed at runtime; it exists for after-action review.
func WriteSessionReport(path string, snap scheduler.Snapshot) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "GhostWalk Session Report")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)

	total := snap.Packets2G + snap.Packets5G
	p2, p5 := 0, 0
	if total > 0 {
		p2 = int(snap.Packets2G * 100 / total)
		p5 = int(snap.Packets5G * 100 / total)
	}

	rows := [][2]string{
		{"Uptime", snap.Uptime.Truncate(1e9).String()},
		{"Total frames", fmt.Sprintf("%d", snap.TotalPackets)},
		{"Noise frames", fmt.Sprintf("%d", snap.JunkPackets)},
		{"Band split", fmt.Sprintf("2.4 GHz %d%% / 5 GHz %d%%", p2, p5)},
		{"Active pool", fmt.Sprintf("%d", snap.Active)},
		{"Dormant pool", fmt.Sprintf("%d", snap.Dormant)},
		{"Interactions", fmt.Sprintf("%d", snap.Interactions)},
		{"Learned SSIDs", fmt.Sprintf("%d", snap.LearnedSSIDs)},
		{"Last learned", orNone(snap.LastLearnedSSID)},
		{"Mesh rebroadcasts", fmt.Sprintf("%d", snap.MeshRebroadcasts)},
		{"Low memory at exit", fmt.Sprintf("%v", snap.LowMemory)},
	}

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	return pdf.OutputFileAndClose(path)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
