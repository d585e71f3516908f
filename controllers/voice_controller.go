package controllers

import (
	"net/http"

	"github.com/rs/zerolog"

	"vibin_client/services"
	"vibin_client/utils"
)

// VoiceController issues presigned URLs for voice message audio
type VoiceController struct {
	Clips  *services.VoiceClipService
	Logger zerolog.Logger
}

func NewVoiceController(clips *services.VoiceClipService, logger zerolog.Logger) *VoiceController {
	return &VoiceController{Clips: clips, Logger: logger}
}

// GenerateUploadURL returns a presigned URL for uploading a voice clip
func (vc *VoiceController) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	if vc.Clips == nil {
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, "voice clips are not configured")
		return
	}

	var payload struct {
		MatchID  string `json:"matchId"`
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := utils.DecodeJSONBody(r, &payload); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	url, key, err := vc.Clips.UploadURL(r.Context(), payload.MatchID, payload.FileName, payload.FileType)
	if err != nil {
		vc.Logger.Error().Err(err).Str("match_id", payload.MatchID).Msg("❌ failed to generate upload url")
		writeServiceError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url, "key": key})
}

// GetReadURL returns a presigned URL for playing a voice clip
func (vc *VoiceController) GetReadURL(w http.ResponseWriter, r *http.Request) {
	if vc.Clips == nil {
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, "voice clips are not configured")
		return
	}

	var payload struct {
		Key string `json:"key"`
	}
	if err := utils.DecodeJSONBody(r, &payload); err != nil || payload.Key == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "key is required")
		return
	}

	url, err := vc.Clips.ReadURL(r.Context(), payload.Key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url})
}
