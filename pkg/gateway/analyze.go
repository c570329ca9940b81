package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sealor/closet-whisperer/pkg/conversation"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
)

var ErrMalformedAnalysis = errors.New("malformed garment analysis")

const analysisPrompt = `You are a fashion expert AI. Analyze clothing images and return structured data in JSON format.

Response format:
{
  "type": "TOP|BOTTOM|DRESS|OUTERWEAR|SHOES|ACCESSORY",
  "color": "primary color name",
  "season": ["SPRING", "SUMMER", "FALL", "WINTER", "ALL_SEASON"],
  "occasion": ["casual", "formal", "sport", "business", "party"],
  "description": "brief description of the item",
  "brand": "brand name if visible, otherwise null"
}

Be accurate and concise. Only return valid JSON.`

// DataURL embeds an image so the model does not need to reach the image store.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// AnalyzeGarment classifies one garment photo in a single exchange without tools.
func (g *Gateway) AnalyzeGarment(ctx context.Context, imageURL string) (*wardrobe.GarmentAnalysis, error) {
	reply, err := g.Complete(ctx, []conversation.Message{
		conversation.SystemMessage(analysisPrompt),
		conversation.UserImageMessage("Analyze this garment and return the structured data.", imageURL),
	}, nil)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(reply.Content)
}

// ParseAnalysis decodes and checks the model's classification.
func ParseAnalysis(content string) (*wardrobe.GarmentAnalysis, error) {
	var analysis wardrobe.GarmentAnalysis
	if err := json.Unmarshal([]byte(conversation.ExtractJSON(content)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	if _, err := wardrobe.ParseGarmentType(string(analysis.Type)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	for _, season := range analysis.Season {
		if _, err := wardrobe.ParseSeason(string(season)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
		}
	}
	if analysis.Occasion == nil {
		analysis.Occasion = []string{}
	}
	return &analysis, nil
}
