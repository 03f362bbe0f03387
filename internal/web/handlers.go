package web

import (
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gorilla/mux"

	"voxel-assets/internal/logging"
	"voxel-assets/internal/nametable"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texture"
)

// maxUpload bounds the size of an uploaded source image.
const maxUpload = 16 << 20

// TextureInfo describes a built texture.
type TextureInfo struct {
	ID             uint32 `json:"id"`
	Name           string `json:"name"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Handle         uint32 `json:"handle"`
	Average        string `json:"average"`
}

// ShaderInfo describes a shader record. Sources are filled only on request.
type ShaderInfo struct {
	ID           uint32 `json:"id"`
	Name         string `json:"name"`
	Material     string `json:"material"`
	Draw         string `json:"draw"`
	BaseMaterial string `json:"base_material"`
	Program      uint32 `json:"program"`
	Vertex       string `json:"vertex,omitempty"`
	Pixel        string `json:"pixel,omitempty"`
	Geometry     string `json:"geometry,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logging.Logger().Debug("web: request failed", "status", status, "err", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write(data)
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// textureID resolves the expr query parameter, with mesh=1 selecting the
// mesh-filtered variant.
func (s *Server) textureID(r *http.Request) (nametable.ID, error) {
	expr := r.URL.Query().Get("expr")
	if expr == "" {
		return 0, fmt.Errorf("missing expr")
	}
	if mesh, _ := strconv.ParseBool(r.URL.Query().Get("mesh")); mesh {
		return s.textures.TextureForMesh(r.Context(), expr)
	}
	return s.textures.TextureID(r.Context(), expr)
}

func (s *Server) handleTexture(w http.ResponseWriter, r *http.Request) {
	id, err := s.textureID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tex, ok := s.textures.Texture(id)
	if !ok || tex.Image == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("texture %d has no image", id))
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	if err := nativewebp.Encode(w, tex.Image, nil); err != nil {
		logging.Logger().Error("web: encode texture", "id", id, "err", err)
	}
}

func (s *Server) handleTextureInfo(w http.ResponseWriter, r *http.Request) {
	id, err := s.textureID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tex, ok := s.textures.Texture(id)
	if !ok || tex.Image == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("texture %d has no image", id))
		return
	}
	avg, err := s.textures.AverageColor(r.Context(), tex.Name)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	size := tex.Image.Rect.Size()
	writeJSON(w, TextureInfo{
		ID:             uint32(id),
		Name:           tex.Name,
		Width:          size.X,
		Height:         size.Y,
		OriginalWidth:  tex.OriginalSize.X,
		OriginalHeight: tex.OriginalSize.Y,
		Handle:         uint32(tex.Handle),
		Average:        hexColor(avg),
	})
}

func (s *Server) handleTextureList(w http.ResponseWriter, r *http.Request) {
	n := s.textures.Len()
	names := make([]string, 0, n)
	for id := 1; id < n; id++ {
		names = append(names, s.textures.TextureName(nametable.ID(id)))
	}
	writeJSON(w, names)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	pal, err := s.textures.Palette(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if pal == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no palette for %q", name))
		return
	}
	colors := make([]string, len(pal))
	for i, c := range pal {
		colors[i] = hexColor(c)
	}
	writeJSON(w, colors)
}

func (s *Server) handleShader(w http.ResponseWriter, r *http.Request) {
	if s.shaders == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("shaders not served"))
		return
	}
	vars := mux.Vars(r)
	material, err := shader.ParseMaterial(vars["material"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	draw, err := shader.ParseDraw(vars["draw"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.shaders.ShaderID(r.Context(), vars["name"], material, draw)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	info, _ := s.shaders.Info(id)
	out := ShaderInfo{
		ID:           uint32(id),
		Name:         info.Name,
		Material:     info.Material.String(),
		Draw:         info.Draw.String(),
		BaseMaterial: info.BaseMaterial.String(),
		Program:      uint32(info.Program),
	}
	if src, _ := strconv.ParseBool(r.URL.Query().Get("sources")); src {
		out.Vertex, out.Pixel, out.Geometry = info.Vertex, info.Pixel, info.Geometry
	}
	writeJSON(w, out)
}

func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("data")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file stream: %w", err))
		return
	}
	defer file.Close()

	img, err := texture.DecodeImage(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.onOwner(r.Context(), func() error {
		return s.textures.InsertSource(name, img)
	}); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, map[string]any{"name": name, "width": img.Rect.Dx(), "height": img.Rect.Dy()})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	err := s.onOwner(r.Context(), func() error {
		if err := s.textures.RebuildAll(); err != nil {
			return err
		}
		if s.shaders != nil {
			return s.shaders.RebuildAll()
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, map[string]int{"textures": s.textures.Len() - 1})
}
