// Package export 会话记录 / 库存导出为 Excel
package export

import (
	"bytes"
	"fmt"
	"time"

	"thalrakshak-assistant/internal/inventory"
	"thalrakshak-assistant/internal/models"

	"github.com/xuri/excelize/v2"
)

// 工作表名
const (
	TranscriptSheet = "Transcript"
	InventorySheet  = "Inventory"
	CitySheet       = "By City"
)

// TranscriptHeader 会话记录表头
var TranscriptHeader = []string{"Time", "Role", "Content", "Attachment"}

// InventoryHeader 库存表头
var InventoryHeader = []string{"Blood Type", "Units", "Status"}

const timeLayout = "2006-01-02 15:04:05"

// sheet 一张待写入的表
type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// TranscriptWorkbook 导出单个会话的消息记录（按插入顺序）
func TranscriptWorkbook(sessionID string, turns []models.ConversationTurn) ([]byte, error) {
	s := sheet{
		name:    TranscriptSheet,
		headers: TranscriptHeader,
		widths:  []float64{20, 12, 80, 30},
	}
	for _, t := range turns {
		attachment := ""
		if t.Attachment != nil {
			attachment = fmt.Sprintf("%s (%s, %d bytes)", t.Attachment.Name, t.Attachment.Kind, t.Attachment.Size)
		}
		s.rows = append(s.rows, []any{
			t.Timestamp.UTC().Format(timeLayout),
			string(t.Role),
			t.Content,
			attachment,
		})
	}

	return writeWorkbook(func(f *excelize.File) error {
		// 会话ID写入文档属性
		return f.SetDocProps(&excelize.DocProperties{
			Title:       "Conversation " + sessionID,
			Identifier:  sessionID,
			Created:     time.Now().UTC().Format(time.RFC3339),
			Description: fmt.Sprintf("%d turns", len(turns)),
		})
	}, s)
}

// InventoryWorkbook 导出库存快照：每个血型一行（含等级），有城市分布时追加一张表
func InventoryWorkbook(snapshot *models.InventorySnapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("inventory snapshot not loaded")
	}

	types := sheet{
		name:    InventorySheet,
		headers: InventoryHeader,
		widths:  []float64{12, 10, 12},
	}
	for _, st := range inventory.Summarize(snapshot) {
		types.rows = append(types.rows, []any{string(st.BloodType), st.Units, string(st.Tier)})
	}
	types.rows = append(types.rows, []any{"Total", snapshot.Total()})

	sheets := []sheet{types}
	if cities := snapshot.CityNames(); len(cities) > 0 {
		byCity := sheet{
			name:    CitySheet,
			headers: append([]string{"City"}, bloodTypeNames()...),
			widths:  []float64{18},
		}
		for _, city := range cities {
			row := []any{city}
			for _, bt := range models.AllBloodTypes {
				row = append(row, snapshot.Cities[city][bt])
			}
			byCity.rows = append(byCity.rows, row)
		}
		sheets = append(sheets, byCity)
	}

	return writeWorkbook(func(f *excelize.File) error {
		return f.SetDocProps(&excelize.DocProperties{
			Title:       "Blood inventory",
			Description: fmt.Sprintf("source=%s fetched_at=%s", snapshot.Source, snapshot.FetchedAt.UTC().Format(time.RFC3339)),
		})
	}, sheets...)
}

func bloodTypeNames() []string {
	out := make([]string, len(models.AllBloodTypes))
	for i, bt := range models.AllBloodTypes {
		out[i] = string(bt)
	}
	return out
}

// writeWorkbook 写入各表（表头样式、列宽、冻结首行）并输出为字节
func writeWorkbook(props func(f *excelize.File) error, sheets ...sheet) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE2E2"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}

	for _, s := range sheets {
		if err := writeSheet(f, s, headerStyle, wrapStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	// 删除默认的 Sheet1，第一张表设为活动表
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if len(sheets) > 0 {
		index, err := f.GetSheetIndex(sheets[0].name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to get sheet index: %w", err)
		}
		f.SetActiveSheet(index)
	}

	if props != nil {
		if err := props(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set document properties: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle, wrapStyle int) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
	}

	// 1. 表头
	for col, header := range s.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(s.name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 2. 列宽
	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 3. 数据（从第2行开始）
	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}
	if len(s.rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(s.headers), len(s.rows)+1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellStyle(s.name, "A2", last, wrapStyle); err != nil {
			return fmt.Errorf("failed to set cell style: %w", err)
		}
	}

	// 4. 冻结表头
	if err := f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
