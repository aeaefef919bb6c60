package address

import (
	"context"
	"strings"

	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/maps"
)

// Suggestion is one address candidate returned to the client.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// ResolvedAddress is a fully resolved place with coordinates, used to pin a
// shift location.
type ResolvedAddress struct {
	PlaceID          string  `json:"place_id"`
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city,omitempty"`
	Postcode         string  `json:"postcode,omitempty"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

type placesClient interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.Suggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

// Service provides best-effort address lookup. Provider failures degrade to
// empty results so address suggestions never block shift management.
type Service interface {
	Lookup(ctx context.Context, input string) ([]Suggestion, error)
	Resolve(ctx context.Context, placeID string) (*ResolvedAddress, error)
}

type service struct {
	places placesClient
	logg   *logger.Logger
}

// NewService wires the address lookup. The places client may be nil when the
// provider is not configured; every lookup then returns empty results.
func NewService(places placesClient, logg *logger.Logger) Service {
	return &service{places: places, logg: logg}
}

func (s *service) Lookup(ctx context.Context, input string) ([]Suggestion, error) {
	if strings.TrimSpace(input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "input is required")
	}
	if s.places == nil {
		return []Suggestion{}, nil
	}

	resp, err := s.places.Autocomplete(ctx, maps.AutocompleteRequest{
		Input:               input,
		IncludedRegionCodes: []string{"GB"},
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			return nil, err
		}
		s.logg.Error(ctx, "address autocomplete degraded", err)
		return []Suggestion{}, nil
	}

	suggestions := make([]Suggestion, 0, len(resp))
	for _, item := range resp {
		suggestions = append(suggestions, Suggestion{
			PlaceID:     item.PlaceID,
			Description: item.Description,
		})
	}
	return suggestions, nil
}

func (s *service) Resolve(ctx context.Context, placeID string) (*ResolvedAddress, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place_id is required")
	}
	if s.places == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address provider not configured")
	}

	details, err := s.places.ResolvePlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "place details missing")
	}

	resolved := &ResolvedAddress{
		PlaceID:          details.PlaceID,
		FormattedAddress: details.FormattedAddress,
		Latitude:         details.Location.Latitude,
		Longitude:        details.Location.Longitude,
	}
	for _, comp := range details.AddressComponents {
		for _, kind := range comp.Types {
			switch kind {
			case "postal_town", "locality":
				if resolved.City == "" {
					resolved.City = comp.LongName
				}
			case "postal_code":
				resolved.Postcode = comp.LongName
			}
		}
	}
	return resolved, nil
}
