package usecases

import (
	"context"

	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/core/store"
)

// Checker defines the operations the front ends offer on flow graphs.
type Checker interface {
	// Check runs the full check and optionally stores the result.
	Check(ctx context.Context, req *dto.CheckRequest) (*dto.CheckResponse, error)

	// Anchors lists the stored payloads a graph refers to.
	Anchors(ctx context.Context, req *dto.CheckRequest) (*dto.AnchorsResponse, error)

	// OriginCodes lists the snippets that must be compiled before Check.
	OriginCodes(ctx context.Context, req *dto.CheckRequest) (*dto.OriginCodesResponse, error)

	// Combined loads a stored graph by its anchor.
	Combined(ctx context.Context, anchor string) (*store.Combined, error)
}
