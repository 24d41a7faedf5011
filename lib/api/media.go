package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"github.com/fosdem/framexform/lib/encdec"
	"github.com/fosdem/framexform/lib/pipeline"
	"github.com/fosdem/framexform/lib/source/imgsource"
)

type MediaResponseType string

const (
	JPEG MediaResponseType = "jpeg"
	PNG  MediaResponseType = "png"
)

// @Summary	fetch the current frame of a job, cropped and rotated
// @Router		/api/media/{job} [get]
// @Router		/api/media/{job}/{format} [get]
// @Tags		media
// @Param		job		path	string				true	"Name of the job to preview"
// @Param		format	path	MediaResponseType	false	"The image type to return"
// @Success	200
// @Failure	400	{string}	string	"The requested image format is not supported"
// @Failure	404	{string}	string	"The specified job does not exist in the configuration"
// @Failure	424	{string}	string	"The source does not have a frame ready to show"
// @Failure	503	{string}	string	"The server is shutting down"
// @Produce	jpeg
// @Produce	png
func (a *Api) handleMedia(w http.ResponseWriter, req *http.Request) {
	jobName := req.PathValue("job")
	formatName := MediaResponseType(req.PathValue("format"))
	if formatName == "" {
		formatName = JPEG
	}
	if formatName != JPEG && formatName != PNG {
		http.Error(w, "Unsupported format", http.StatusBadRequest)
		return
	}

	buf, width, height, err := a.pipeline.Preview(jobName)
	if errors.Is(err, pipeline.ErrNoSuchJob) {
		http.Error(w, "Job does not exist", http.StatusNotFound)
		return
	}
	if errors.Is(err, pipeline.ErrClosed) {
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("No frame returned: %s", err), http.StatusFailedDependency)
		return
	}

	var out []byte
	switch formatName {
	case JPEG:
		out, err = a.pipeline.Codec.Encode(buf, width, height, encdec.FullFrame(width, height), 80)
		if err != nil {
			http.Error(w, "Could not jpeg encode this frame", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
	case PNG:
		rgb, err := encdec.NV21ToARGB(buf, width, height, nil)
		if err != nil {
			http.Error(w, "Could not convert this frame", http.StatusInternalServerError)
			return
		}
		var b bytes.Buffer
		err = png.Encode(&b, rgb.NRGBA())
		if err != nil {
			http.Error(w, "Could not png encode this frame", http.StatusInternalServerError)
			return
		}
		out = b.Bytes()
		w.Header().Set("Content-Type", "image/png")
	}
	_, err = w.Write(out)
	if err != nil {
		a.log.Warn("could not write frame", "job", jobName, "err", err)
	}
}

// @Summary	replace the picture of an image source
// @Router		/api/sources/{source} [put]
// @Tags		media
// @Param		source	path	string	true	"Name of the image source to update"
// @Success	200
// @Failure	400	{string}	string	"The body is not a valid image or the source is not an image source"
// @Failure	404	{string}	string	"The specified source does not exist in the configuration"
func (a *Api) putSourceImage(w http.ResponseWriter, req *http.Request) {
	sourceName := req.PathValue("source")
	src, ok := a.pipeline.Sources[sourceName]
	if !ok {
		http.Error(w, "Source does not exist", http.StatusNotFound)
		return
	}
	imgSource, ok := src.(*imgsource.ImgSource)
	if !ok {
		http.Error(w, "not a valid image source", http.StatusBadRequest)
		return
	}

	newImage, ftype, err := image.Decode(req.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("not a valid image: %s", err), http.StatusBadRequest)
		return
	}
	a.log.Info("image source updated", "source", sourceName, "type", ftype,
		"width", newImage.Bounds().Dx(), "height", newImage.Bounds().Dy())
	err = imgSource.SetImage(newImage)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not update image: %s", err), http.StatusBadRequest)
		return
	}
}
