package geocoder

import "github.com/meetpoint/service-meeting/pkg/geo"

// AddressCandidate is one geocoding result.
type AddressCandidate struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Text        string         `json:"text,omitempty"`
	Kind        string         `json:"kind,omitempty"`
	Point       geo.Coordinate `json:"point"`
}

// Label returns the text shown in suggestion lists.
func (a AddressCandidate) Label() string {
	return a.Name
}

// geocoderResponse mirrors the parts of the geocoder JSON payload we use.
type geocoderResponse struct {
	Response struct {
		GeoObjectCollection struct {
			MetaDataProperty struct {
				GeocoderResponseMetaData struct {
					Request string `json:"request"`
					Found   string `json:"found"`
					Results string `json:"results"`
				} `json:"GeocoderResponseMetaData"`
			} `json:"metaDataProperty"`
			FeatureMember []featureMember `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

type featureMember struct {
	GeoObject struct {
		MetaDataProperty struct {
			GeocoderMetaData struct {
				Kind      string `json:"kind"`
				Text      string `json:"text"`
				Precision string `json:"precision"`
			} `json:"GeocoderMetaData"`
		} `json:"metaDataProperty"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Point       struct {
			Pos string `json:"pos"`
		} `json:"Point"`
	} `json:"GeoObject"`
}
