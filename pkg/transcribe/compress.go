package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Upload limits for the remote ASR endpoint.
const (
	MaxFileSizeMB    = 25
	MaxFileSizeBytes = MaxFileSizeMB * 1024 * 1024

	// targetSizeMB leaves headroom under the hard limit.
	targetSizeMB = 20.0

	// minBitrateKbps keeps speech intelligible; retryBitrateKbps is the
	// last-resort pass when the computed bitrate still overshoots.
	minBitrateKbps   = 32
	maxBitrateKbps   = 128
	retryBitrateKbps = 24
)

// CompressAudio transcodes a media file to mono OGG at a bitrate computed to
// land near targetSizeMB. If the result is still over the upload limit it
// retries once at retryBitrateKbps, then gives up. The returned path is a
// temp file the caller must remove.
func CompressAudio(ctx context.Context, audioPath string) (string, error) {
	duration, err := probeDuration(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to probe audio duration: %w", err)
	}
	if duration <= 0 {
		return "", fmt.Errorf("invalid audio duration %.2fs for %s", duration, audioPath)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", err
	}
	slog.Info("Compressing audio file",
		"file", filepath.Base(audioPath),
		"size_mb", float64(info.Size())/(1024*1024),
		"duration_s", duration)

	// bitrate (kbps) = target_bytes * 8 / duration / 1000
	targetBytes := targetSizeMB * 1024 * 1024
	bitrate := int(targetBytes * 8 / duration / 1000)
	if bitrate < minBitrateKbps {
		bitrate = minBitrateKbps
	}
	if bitrate > maxBitrateKbps {
		bitrate = maxBitrateKbps
	}

	out, err := transcode(ctx, audioPath, bitrate)
	if err != nil {
		return "", err
	}

	compressed, err := os.Stat(out)
	if err != nil {
		_ = os.Remove(out)
		return "", err
	}
	if compressed.Size() <= MaxFileSizeBytes {
		return out, nil
	}
	_ = os.Remove(out)

	slog.Info("Compressed file still over limit, retrying at lower bitrate",
		"bitrate_kbps", retryBitrateKbps)
	out, err = transcode(ctx, audioPath, retryBitrateKbps)
	if err != nil {
		return "", err
	}
	compressed, err = os.Stat(out)
	if err != nil {
		_ = os.Remove(out)
		return "", err
	}
	if compressed.Size() > MaxFileSizeBytes {
		_ = os.Remove(out)
		return "", fmt.Errorf("cannot compress %s under %dMB limit; file may be too long or already compressed",
			filepath.Base(audioPath), MaxFileSizeMB)
	}
	return out, nil
}

// transcode runs ffmpeg to produce a mono OGG at the given bitrate.
func transcode(ctx context.Context, audioPath string, bitrateKbps int) (string, error) {
	tmp, err := os.CreateTemp("", "voxpipe-*.ogg")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", audioPath,
		"-ac", "1",
		"-c:a", "libvorbis",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-vn",
		tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("ffmpeg transcode failed: %w: %s", err, tail(string(out), 300))
	}
	return tmpPath, nil
}

// probeDuration asks ffprobe for the stream duration in seconds.
func probeDuration(ctx context.Context, audioPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(string(out), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output %q: %w", string(out), err)
	}
	return duration, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
