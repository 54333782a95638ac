package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxpipe/voxpipe/pkg/output"
	"github.com/voxpipe/voxpipe/pkg/services"
)

// maxUploadBytes is the hard cap on a submitted media file, enforced during
// the streamed write.
const maxUploadBytes = 500 << 20

// allowedExtensions is the media-type allow-list for uploads.
var allowedExtensions = map[string]bool{
	// audio
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true,
	".ogg": true, ".aac": true, ".wma": true,
	// video
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".flv": true,
}

// createJobHandler handles POST /jobs: multipart media file + profile_id.
func (s *Server) createJobHandler(c *gin.Context) {
	// A little headroom over the cap for the multipart framing.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(1<<20))

	profileID := c.PostForm("profile_id")
	if profileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "profile_id is required"})
		return
	}
	prof, ok := s.profiles.Get(profileID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown profile: " + profileID})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 500 MB limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type: " + ext})
		return
	}

	destPath, err := s.saveUpload(fileHeader.Filename, fileHeader)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 500 MB limit"})
			return
		}
		abortWithServiceError(c, err)
		return
	}

	ctx, cancel := shortTimeout(c.Request.Context())
	defer cancel()

	j, err := s.jobs.Enqueue(ctx, services.EnqueueInput{
		ProfileID:  profileID,
		SourcePath: destPath,
		Priority:   prof.Priority,
	})
	if err != nil {
		_ = os.Remove(destPath)
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, j)
}

var errUploadTooLarge = errors.New("upload too large")

// saveUpload streams the multipart file to the upload directory under a
// timestamped name, enforcing the size cap as bytes arrive.
func (s *Server) saveUpload(originalName string, fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	safeName := output.SafeBase(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))
	destName := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102_150405"), safeName, strings.ToLower(filepath.Ext(originalName)))
	destPath := filepath.Join(s.uploadDir, destName)

	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		_ = os.Remove(destPath)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if written > maxUploadBytes {
		_ = os.Remove(destPath)
		return "", errUploadTooLarge
	}
	return destPath, nil
}

// listJobsHandler handles GET /jobs with status/profile_id filters and
// limit/offset pagination, newest first.
func (s *Server) listJobsHandler(c *gin.Context) {
	filters := services.JobFilters{
		Status:    c.Query("status"),
		ProfileID: c.Query("profile_id"),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filters.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	ctx, cancel := shortTimeout(c.Request.Context())
	defer cancel()

	result, err := s.jobs.ListJobs(ctx, filters)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":        result.Jobs,
		"total_count": result.TotalCount,
		"limit":       result.Limit,
		"offset":      result.Offset,
	})
}

// getJobHandler handles GET /jobs/:id: the job, its stage rows, and the
// output files materialized from the output directory.
func (s *Server) getJobHandler(c *gin.Context) {
	ctx, cancel := shortTimeout(c.Request.Context())
	defer cancel()

	j, err := s.jobs.GetJob(ctx, c.Param("id"), true)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job":     j,
		"outputs": s.scanOutputs(j.SourcePath),
	})
}

// listJobOutputsHandler handles GET /jobs/:id/outputs.
func (s *Server) listJobOutputsHandler(c *gin.Context) {
	ctx, cancel := shortTimeout(c.Request.Context())
	defer cancel()

	j, err := s.jobs.GetJob(ctx, c.Param("id"), false)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outputs": s.scanOutputs(j.SourcePath)})
}

// deleteJobHandler handles DELETE /jobs/:id: an active job is cancelled (the
// runner halts at the next stage boundary); a terminal job's rows are
// removed.
func (s *Server) deleteJobHandler(c *gin.Context) {
	ctx, cancel := shortTimeout(c.Request.Context())
	defer cancel()

	cancelled, err := s.jobs.DeleteJob(ctx, c.Param("id"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	status := "deleted"
	if cancelled {
		status = "cancelled"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// OutputFile is one materialized output artifact.
type OutputFile struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Stage     string `json:"stage,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
}

// scanOutputs finds the output files belonging to a job by matching the
// sanitized filename stem of its source against the output directories.
func (s *Server) scanOutputs(sourcePath string) []OutputFile {
	base := filepath.Base(sourcePath)
	stem := output.SafeBase(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		return []OutputFile{}
	}

	outputs := []OutputFile{}
	for _, root := range []string{
		filepath.Join(s.paths.OutputDir, "transcripts"),
		filepath.Join(s.paths.OutputDir, "docs"),
	} {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			name := d.Name()
			nameStem := strings.TrimSuffix(name, filepath.Ext(name))
			if !strings.HasPrefix(nameStem, stem) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			outputs = append(outputs, OutputFile{
				Path:      path,
				Name:      name,
				Type:      outputType(name),
				Stage:     strings.Trim(strings.TrimPrefix(nameStem, stem), "_"),
				SizeBytes: info.Size(),
			})
			return nil
		})
	}
	return outputs
}

func outputType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md":
		return "markdown"
	case ".docx":
		return "docx"
	case ".html":
		return "html"
	default:
		return "file"
	}
}
