package llamaCloud

import (
	"encoding/json"
	"fmt"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/indexer"
)

// The retrieval endpoint has been observed returning two shapes for each
// node: wrapped ({node:{text, extra_info}, score}) and flat
// ({text, extra_info, score}). Both are normalized here; a third shape is an
// error rather than a silent empty passage.

type retrieveResponse struct {
	RetrievalNodes []retrievalNode `json:"retrieval_nodes"`
}

type retrievalNode struct {
	Node      *innerNode `json:"node"`
	Text      string     `json:"text"`
	ExtraInfo *extraInfo `json:"extra_info"`
	Score     float64    `json:"score"`
}

type innerNode struct {
	Text      string     `json:"text"`
	ExtraInfo *extraInfo `json:"extra_info"`
}

type extraInfo struct {
	PageLabel flexLabel `json:"page_label"`
	FileName  string    `json:"file_name"`
}

// flexLabel accepts both string and numeric page labels.
type flexLabel string

func (f *flexLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexLabel(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexLabel(n.String())
	return nil
}

func normalizeRetrieval(body []byte) ([]indexer.Passage, error) {
	var resp retrieveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("undecodable retrieval response: %w", err)
	}

	passages := make([]indexer.Passage, 0, len(resp.RetrievalNodes))
	for i, node := range resp.RetrievalNodes {
		passage, err := normalizeNode(i, node)
		if err != nil {
			return nil, err
		}
		passages = append(passages, passage)
	}
	return passages, nil
}

func normalizeNode(index int, node retrievalNode) (indexer.Passage, error) {
	var text string
	var info *extraInfo

	switch {
	case node.Node != nil && node.Node.Text != "":
		text = node.Node.Text
		info = node.Node.ExtraInfo
	case node.Text != "":
		text = node.Text
		info = node.ExtraInfo
	default:
		return indexer.Passage{}, fmt.Errorf("unrecognized retrieval node shape at index %d", index)
	}

	passage := indexer.Passage{
		Text:      text,
		Score:     node.Score,
		PageLabel: config.UnknownPage,
	}
	if info != nil {
		if info.PageLabel != "" {
			passage.PageLabel = string(info.PageLabel)
		}
		passage.FileName = info.FileName
	}
	return passage, nil
}
