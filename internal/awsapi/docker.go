// File: internal/awsapi/docker.go
// Brief: Image build and push through the local docker daemon.

package awsapi

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"go.uber.org/zap"
)

// ImageWorkshop builds images from a source directory and pushes them to ECR.
// It satisfies both the builder and registry collaborator contracts.
type ImageWorkshop struct {
	Docker     *client.Client
	Repository *Repository
	ContextDir string
	Log        *zap.Logger
}

// NewDockerClient connects to the local daemon using the standard DOCKER_*
// environment.
func NewDockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect to docker daemon: %w", err)
	}
	return cli, nil
}

// Build produces the image for ref from the context directory. Build
// arguments pass through verbatim.
func (w *ImageWorkshop) Build(ctx context.Context, ref string, buildArgs map[string]string) error {
	buildCtx, err := tarDirectory(w.ContextDir)
	if err != nil {
		return fmt.Errorf("prepare build context: %w", err)
	}

	args := make(map[string]*string, len(buildArgs))
	for k, v := range buildArgs {
		args[k] = aws.String(v)
	}
	resp, err := w.Docker.ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:       []string{ref},
		Dockerfile: "Dockerfile",
		BuildArgs:  args,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("build %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if err := drainDockerStream(resp.Body, w.Log); err != nil {
		return fmt.Errorf("build %s: %w", ref, err)
	}
	return nil
}

// ImageExists reports whether the tag of ref is already in the repository.
func (w *ImageWorkshop) ImageExists(ctx context.Context, ref string) (bool, error) {
	return w.Repository.TagExists(ctx, tagOf(ref))
}

// Push uploads ref to ECR. Pushing a tag whose layers are already present is
// a no-op on the registry side.
func (w *ImageWorkshop) Push(ctx context.Context, ref string) error {
	user, password, err := w.Repository.AuthToken(ctx)
	if err != nil {
		return err
	}
	auth, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username: user,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("encode registry auth: %w", err)
	}
	resp, err := w.Docker.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return fmt.Errorf("push %s: %w", ref, err)
	}
	defer resp.Close()
	if err := drainDockerStream(resp, w.Log); err != nil {
		return fmt.Errorf("push %s: %w", ref, err)
	}
	return nil
}

func tagOf(ref string) string {
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		return ref[i+1:]
	}
	return "latest"
}

// drainDockerStream consumes the daemon's JSON progress stream and surfaces
// the embedded error, if any. The daemon reports failures mid-stream with a
// 200 status, so reading to EOF is mandatory.
func drainDockerStream(r io.Reader, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	dec := json.NewDecoder(r)
	for {
		var msg struct {
			Stream string `json:"stream"`
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read daemon stream: %w", err)
		}
		if msg.Error != "" {
			return fmt.Errorf("%s", msg.Error)
		}
		if s := strings.TrimSpace(msg.Stream); s != "" {
			log.Debug(s)
		}
	}
}

// tarDirectory packs dir into an uncompressed tar for the build API.
// .git and dangling symlinks are skipped.
func tarDirectory(dir string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
