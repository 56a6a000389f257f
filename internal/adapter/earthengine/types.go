package earthengine

// Earth Engine REST API request and response types.

type asset struct {
	Type      string `json:"type"` // IMAGE, IMAGE_COLLECTION, TABLE, FOLDER
	Name      string `json:"name"`
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	Bands     []band `json:"bands"`
}

type band struct {
	ID string `json:"id"`
}

// expression is a serialized computation graph; result names the output node.
type expression struct {
	Result string               `json:"result"`
	Values map[string]valueNode `json:"values"`
}

type valueNode struct {
	ConstantValue           any                 `json:"constantValue,omitempty"`
	FunctionInvocationValue *functionInvocation `json:"functionInvocationValue,omitempty"`
}

type functionInvocation struct {
	FunctionName string               `json:"functionName"`
	Arguments    map[string]valueNode `json:"arguments"`
}

// imageLoad builds the expression ee.Image(id).
func imageLoad(id string) expression {
	return expression{
		Result: "0",
		Values: map[string]valueNode{
			"0": {FunctionInvocationValue: &functionInvocation{
				FunctionName: "Image.load",
				Arguments:    map[string]valueNode{"id": {ConstantValue: id}},
			}},
		},
	}
}

type mapRequest struct {
	Expression           expression           `json:"expression"`
	FileFormat           string               `json:"fileFormat"`
	VisualizationOptions visualizationOptions `json:"visualizationOptions"`
}

type visualizationOptions struct {
	Ranges        []valueRange `json:"ranges"`
	PaletteColors []string     `json:"paletteColors"`
}

type valueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type mapResponse struct {
	Name string `json:"name"` // projects/<p>/maps/<id>
}
