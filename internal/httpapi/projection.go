package httpapi

import (
	"time"

	"launchctl/internal/project"
)

// projection is the client-facing view of a project: internal stage detail
// (Created vs Confirmed) is collapsed via Stage.PublicStage, and unassigned
// keys are simply absent rather than present as zero-valued pubkeys.
type projection struct {
	ID               string              `json:"id"`
	Owner            string              `json:"owner"`
	Stage            string              `json:"stage"`
	CreatedAt        time.Time           `json:"created_at"`
	CurveVariant     string              `json:"curve_variant"`
	StaticPoolPubkey string              `json:"static_pool_pubkey,omitempty"`
	CurvePoolPubkey  string              `json:"curve_pool_pubkey,omitempty"`
	Metadata         projectionMetadata  `json:"metadata"`
	StaticPool       *projectionStatic   `json:"static_pool,omitempty"`
	CurvePool        *projectionCurve    `json:"curve_pool,omitempty"`
}

type projectionMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

type projectionStatic struct {
	CollectedLamports uint64 `json:"collected_lamports"`
	Closed            bool   `json:"closed"`
}

type projectionCurve struct {
	VirtualSolReserves   uint64 `json:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `json:"virtual_token_reserves"`
	Complete             bool   `json:"complete"`
}

func projectionOf(p *project.Project) projection {
	out := projection{
		ID:           p.ID.String(),
		Owner:        encodePubkey(&p.Owner),
		Stage:        p.Stage.PublicStage(),
		CreatedAt:    p.CreatedAt,
		CurveVariant: p.Schema.CurvePool.String(),
		Metadata: projectionMetadata{
			Name: p.Metadata.Name, Symbol: p.Metadata.Symbol, Description: p.Metadata.Description,
			Website: p.Metadata.Website, Twitter: p.Metadata.Twitter, Telegram: p.Metadata.Telegram,
			MetadataURI: p.Metadata.MetadataURI,
		},
	}
	if p.StaticPoolPubkey != nil {
		out.StaticPoolPubkey = encodePubkey(p.StaticPoolPubkey)
	}
	if p.CurvePoolKeypair != nil {
		pk := p.CurvePoolKeypair.Pubkey()
		out.CurvePoolPubkey = encodePubkey(&pk)
	}
	if p.StaticPoolState != nil {
		out.StaticPool = &projectionStatic{
			CollectedLamports: p.StaticPoolState.CollectedLamports,
			Closed:            p.StaticPoolState.Closed,
		}
	}
	if p.CurvePoolState != nil {
		out.CurvePool = &projectionCurve{
			VirtualSolReserves:   p.CurvePoolState.VirtualSolReserves,
			VirtualTokenReserves: p.CurvePoolState.VirtualTokenReserves,
			Complete:             p.CurvePoolState.Complete,
		}
	}
	return out
}
