package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trailblaze/fieldops/internal/models"
)

func TestAssignBody(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/operations/assign", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":                     "Parcelas atribuídas com sucesso.",
			"operationExecutionId":        "op-1",
			"parcelOperationExecutionIds": []string{"pe-1", "pe-2"},
		})
	})

	msg, err := b.client().Assign(context.Background(), AssignRequest{
		ExecutionSheetID: "es-1",
		OperationID:      "PODA",
		ParcelExecutions: []ParcelAssignment{{ParcelID: "12", Area: 1.5}, {ParcelID: "13", Area: 2}},
		Notes:            "começar pela encosta",
	})
	require.NoError(t, err)
	require.Equal(t, "Parcelas atribuídas com sucesso.", msg.Message)
	require.Equal(t, []string{"pe-1", "pe-2"}, msg.ParcelOperationExecutionIDs)

	body := decodeBody(t, b.last().Body)
	require.Equal(t, "es-1", body["executionSheetId"])
	require.Equal(t, "PODA", body["operationId"])
	require.Equal(t, 3.5, body["expectedTotalArea"])
	require.Equal(t, "começar pela encosta", body["notes"])
	require.Equal(t, []interface{}{
		map[string]interface{}{"parcelId": "12", "area": 1.5},
		map[string]interface{}{"parcelId": "13", "area": 2.0},
	}, body["parcelExecutions"])
}

func TestAssignValidatesLocally(t *testing.T) {
	b := newFakeBackend(t)
	_, err := b.client().Assign(context.Background(), AssignRequest{ExecutionSheetID: "es-1", OperationID: "PODA"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "parcels", ve.Field)
	require.Zero(t, b.count())
}

func TestStartAndStopActivity(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/operations/{op}/start", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Atividade iniciada com sucesso", "activityId": "act-1"})
	})
	b.handle(http.MethodPost, "/operations/{op}/stop", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Atividade finalizada com sucesso", "activityId": "act-1"})
	})
	c := b.client()

	msg, err := c.StartActivity(context.Background(), "op-1", "pe-1")
	require.NoError(t, err)
	require.Equal(t, "act-1", msg.ActivityID)
	require.Equal(t, "/rest/operations/op-1/start", b.last().Path)
	require.Equal(t, map[string]interface{}{"parcelOperationExecutionId": "pe-1"}, decodeBody(t, b.last().Body))

	msg, err = c.StopActivity(context.Background(), "op-1", "act-1")
	require.NoError(t, err)
	require.Equal(t, "Atividade finalizada com sucesso", msg.Message)
	require.Equal(t, map[string]interface{}{"activityId": "act-1"}, decodeBody(t, b.last().Body))
}

func TestEditOperationExecutionOmitsUnsetFields(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPatch, "/operations/edit-operation-execution", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "OperationExecution atualizada com sucesso."})
	})
	c := b.client()

	end := "2025-07-01"
	minutes := int64(90)
	_, err := c.EditOperationExecution(context.Background(), EditOperationRequest{
		OperationExecutionID:     "op-1",
		PredictedEndDate:         &end,
		EstimatedDurationMinutes: &minutes,
	})
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"operationExecutionId":     "op-1",
		"predictedEndDate":         "2025-07-01",
		"estimatedDurationMinutes": 90.0,
	}, decodeBody(t, b.last().Body))

	before := b.count()
	_, err = c.EditOperationExecution(context.Background(), EditOperationRequest{OperationExecutionID: "op-1"})
	require.Error(t, err)
	require.Equal(t, before, b.count())
}

func TestActivityListings(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodGet, "/operations/{op}/activities", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"activityId":"a1","operatorId":"joana","startTime":1748943000000,"endTime":1748946600000,"photoUrls":[]}]`))
	})
	b.handle(http.MethodGet, "/operations/{op}/parcels/{pe}/activities", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"activityId":"a2","operatorId":"rui","startTime":1748943000000}]`))
	})
	b.handle(http.MethodGet, "/operations/{op}/parcels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.ParcelExecution{{ID: "pe-1", ParcelID: "12", Status: models.ParcelAssigned}})
	})
	c := b.client()

	acts, err := c.OperationActivities(context.Background(), "op-1")
	require.NoError(t, err)
	require.Equal(t, "a1", acts[0].ID)
	require.False(t, acts[0].Running())

	acts, err = c.ParcelActivities(context.Background(), "op-1", "pe-1")
	require.NoError(t, err)
	require.True(t, acts[0].Running())
	require.Equal(t, "/rest/operations/op-1/parcels/pe-1/activities", b.last().Path)

	parcels, err := c.OperationParcels(context.Background(), "op-1")
	require.NoError(t, err)
	require.Equal(t, models.ParcelAssigned, parcels[0].Status)
}

func TestAddInfoAndDeletePhoto(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/operations/activity/addinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Informações adicionadas à atividade."})
	})
	b.handle(http.MethodPost, "/operations/activity/deletephoto", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Foto removida com sucesso.", "remainingPhotos": 1})
	})
	c := b.client()

	_, err := c.AddActivityInfo(context.Background(), AddInfoRequest{ActivityID: "a1", Observations: "chuva"})
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"activityId":   "a1",
		"observations": "chuva",
		"photos":       []interface{}{},
		"gpsTracks":    []interface{}{},
	}, decodeBody(t, b.last().Body))

	msg, err := c.DeletePhoto(context.Background(), "a1", "/rest/photos/view/1.jpg")
	require.NoError(t, err)
	require.NotNil(t, msg.RemainingPhotos)
	require.Equal(t, 1, *msg.RemainingPhotos)
	require.Equal(t, map[string]interface{}{"activityId": "a1", "photoUrl": "/rest/photos/view/1.jpg"}, decodeBody(t, b.last().Body))
}

func TestUploadPhotoMultipart(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/photos/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		writeJSON(w, http.StatusOK, UploadResult{
			PhotoURL: "/rest/photos/view/" + header.Filename,
			Message:  "Upload successful",
			FileName: string(data),
		})
	})
	c := b.client()

	res, err := c.UploadPhoto(context.Background(), "/tmp/field/Vinha.JPG", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	require.Equal(t, "/rest/photos/view/Vinha.JPG", res.PhotoURL)
	require.Equal(t, "jpeg-bytes", res.FileName)

	before := b.count()
	_, err = c.UploadPhoto(context.Background(), "track.gpx", strings.NewReader("<gpx/>"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, before, b.count())
}

func TestCheckPhotoName(t *testing.T) {
	for _, ok := range []string{"a.jpg", "b.JPEG", "c.png"} {
		require.NoError(t, CheckPhotoName(ok), ok)
	}
	for _, bad := range []string{"a.gif", "b", "c.png.txt"} {
		require.Error(t, CheckPhotoName(bad), bad)
	}
}
