package render

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/sub/link"
)

// renderSSSub emits a plain SIP002 link list, one ss:// line per node,
// optionally wrapped in base64 for clients that expect the classic
// subscription shape.
func renderSSSub(nodes []model.Proxy, ext *ExtraSettings) (string, error) {
	lines := make([]string, 0, len(nodes))
	for i := range nodes {
		lines = append(lines, link.EncodeSS(&nodes[i]))
	}
	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	if ext.Base64Output {
		return base64.StdEncoding.EncodeToString([]byte(out)), nil
	}
	return out, nil
}

// renderMixed emits every node its native link codec can express, one URI
// per line. Unsupported types drop out silently.
func renderMixed(nodes []model.Proxy, ext *ExtraSettings) (string, error) {
	var lines []string
	for i := range nodes {
		if line, ok := link.Encode(&nodes[i]); ok {
			lines = append(lines, line)
		}
	}
	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	if ext.Base64Output {
		return base64.StdEncoding.EncodeToString([]byte(out)), nil
	}
	return out, nil
}

type ssdDocument struct {
	Airport    string      `json:"airport"`
	Port       int         `json:"port"`
	Encryption string      `json:"encryption"`
	Password   string      `json:"password"`
	Servers    []ssdServer `json:"servers"`
}

type ssdServer struct {
	ID            int    `json:"id"`
	Server        string `json:"server"`
	Port          int    `json:"port"`
	Encryption    string `json:"encryption"`
	Password      string `json:"password"`
	Remarks       string `json:"remarks"`
	Plugin        string `json:"plugin,omitempty"`
	PluginOptions string `json:"plugin_options,omitempty"`
}

// renderSSD emits the ssd:// wrapper. Document defaults come from the first
// node; every server still carries its own values so inheritance never
// changes meaning.
func renderSSD(nodes []model.Proxy, ext *ExtraSettings) (string, error) {
	if len(nodes) == 0 {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: "没有可写入 ssd 订阅的节点",
				Stage:   "render",
			},
		}
	}

	doc := ssdDocument{
		Airport:    firstGroup(nodes, "subforge"),
		Port:       int(nodes[0].Port),
		Encryption: nodes[0].EncryptMethod,
		Password:   nodes[0].Password,
		Servers:    make([]ssdServer, 0, len(nodes)),
	}
	for i := range nodes {
		p := &nodes[i]
		doc.Servers = append(doc.Servers, ssdServer{
			ID:            i,
			Server:        p.Hostname,
			Port:          int(p.Port),
			Encryption:    p.EncryptMethod,
			Password:      p.Password,
			Remarks:       p.Remark,
			Plugin:        p.Plugin,
			PluginOptions: p.PluginOption,
		})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: "ssd JSON 序列化失败",
				Stage:   "render",
			},
			Cause: err,
		}
	}
	return "ssd://" + base64.RawURLEncoding.EncodeToString(raw), nil
}

func firstGroup(nodes []model.Proxy, fallback string) string {
	for i := range nodes {
		if nodes[i].Group != "" {
			return nodes[i].Group
		}
	}
	return fallback
}
