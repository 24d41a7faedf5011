package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fosdem/framexform/lib/xform"
)

type transformResponse struct {
	Coefficients [6]float32  `json:"coefficients"`
	Inverse      *[6]float32 `json:"inverse,omitempty"`
	Box          *xform.Rect `json:"box,omitempty"`
}

// @Summary	Compute the transform between two frame sizes
// @Router		/api/transform [get]
// @Tags		transform
// @Param		src			query	string	true	"Source size as WIDTHxHEIGHT"
// @Param		dst			query	string	true	"Destination size as WIDTHxHEIGHT"
// @Param		rotation	query	int		false	"Rotation in degrees, a multiple of 90"
// @Param		keep_aspect	query	bool	false	"Scale both axes by the same factor"
// @Param		box			query	string	false	"Destination box left,top,right,bottom to map back to the source"
// @Produce	json
// @Success	200
// @Failure	400	{string}	string	"A parameter is missing or malformed"
func (a *Api) handleTransform(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	srcW, srcH, err := xform.ParseSize(q.Get("src"))
	if err != nil {
		http.Error(w, fmt.Sprintf("src: %s", err), http.StatusBadRequest)
		return
	}
	dstW, dstH, err := xform.ParseSize(q.Get("dst"))
	if err != nil {
		http.Error(w, fmt.Sprintf("dst: %s", err), http.StatusBadRequest)
		return
	}

	rotation := 0
	if r := q.Get("rotation"); r != "" {
		rotation, err = strconv.Atoi(r)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid rotation %q", r), http.StatusBadRequest)
			return
		}
	}

	keepAspect := false
	if k := q.Get("keep_aspect"); k != "" {
		keepAspect, err = strconv.ParseBool(k)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid keep_aspect %q", k), http.StatusBadRequest)
			return
		}
	}

	t, err := xform.Build(srcW, srcH, dstW, dstH, rotation, keepAspect)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := transformResponse{Coefficients: t.Coefficients()}
	inv, err := t.Invert()
	if err == nil {
		c := inv.Coefficients()
		resp.Inverse = &c
		if b := q.Get("box"); b != "" {
			box, err := xform.ParseRect(b)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mapped := inv.MapRect(box)
			resp.Box = &mapped
		}
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		a.log.Warn("could not write response", "err", err)
	}
}
